// Package orderGen предоставляет функции для генерации случайных, но
// структурно-валидных данных: каталога услуг для mock-шлюза и событий
// об оплаченных заказах для сервиса `order-generator`.
// Для создания фейковых данных используется библиотека `gofakeit`.
package orderGen

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/xiangyupai/order-service/internal/models"
)

// Предопределенные срезы строк для выбора случайных значений.
// Это делает сгенерированные данные более похожими на настоящие.
var (
	gameAreas    = []string{"QQ一区", "QQ二区", "微信一区", "微信二区"}
	rankDisplays = []string{"黄金", "铂金", "钻石", "星耀", "王者"}
	serviceNames = []string{"王者荣耀陪玩", "和平精英陪玩", "英雄联盟陪玩", "探店陪同", "私教课程"}
	providerTags = []string{"声优", "技术流", "幽默", "高胜率", "陪聊"}
	genders      = []string{"male", "female"}
)

// CatalogEntry описывает одну услугу вместе с ее исполнителем. Из таких
// записей mock-шлюз собирает свой каталог.
type CatalogEntry struct {
	ServiceID       int64
	Provider        models.Provider
	Service         models.ServiceInfo
	UnitPrice       int64
	QuantityOptions models.QuantityOptions
}

// GenerateCatalog создает n услуг со случайными исполнителями и ценами.
// Принимает *gofakeit.Faker, чтобы mock-шлюз мог сидировать генерацию
// и получать воспроизводимые данные.
func GenerateCatalog(f *gofakeit.Faker, n int) []CatalogEntry {
	entries := make([]CatalogEntry, 0, n)

	for i := range n {
		serviceID := int64(i + 1)

		entries = append(entries, CatalogEntry{
			ServiceID: serviceID,
			Provider:  generateProvider(f, serviceID),
			Service:   models.ServiceInfo{Name: f.RandomString(serviceNames)},
			// Целые "монеты": от 50 до 500 за единицу услуги.
			UnitPrice: int64(f.Number(50, 500)),
			QuantityOptions: models.QuantityOptions{
				Min:     1,
				Max:     f.Number(3, 10),
				Default: 1,
			},
		})
	}

	return entries
}

// generateProvider создает одного исполнителя услуги.
func generateProvider(f *gofakeit.Faker, id int64) models.Provider {
	tagsCount := f.Number(1, 3)
	tags := make([]string, 0, tagsCount)
	for range tagsCount {
		tags = append(tags, f.RandomString(providerTags))
	}

	return models.Provider{
		ID:       id,
		Avatar:   f.ImageURL(200, 200),
		Nickname: f.Username(),
		Gender:   f.RandomString(genders),
		Age:      f.Number(18, 35),
		Tags:     tags,
		SkillInfo: models.SkillInfo{
			GameArea:    f.RandomString(gameAreas),
			RankDisplay: f.RandomString(rankDisplays),
		},
	}
}

// GenerateOrderEvent создает событие об оплаченном заказе со случайными
// данными и сериализует его в JSON.
//
// Возвращает:
//   - `string`: идентификатор заказа, используется как ключ сообщения в Kafka.
//   - `[]byte`: JSON-представление события.
func GenerateOrderEvent() (string, []byte) {
	orderID := uuid.NewString()
	quantity := gofakeit.Number(1, 5)
	unitPrice := int64(gofakeit.Number(50, 500))

	event := models.OrderEvent{
		OrderID:    orderID,
		OrderNo:    fmt.Sprintf("XY%s%04d", time.Now().Format("20060102150405"), gofakeit.Number(0, 9999)),
		UserID:     int64(gofakeit.Number(1, 1000)),
		ServiceID:  int64(gofakeit.Number(1, 50)),
		Quantity:   quantity,
		Amount:     unitPrice * int64(quantity),
		Status:     models.OrderStatusPaid,
		OccurredAt: time.Now().UTC(),
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		// В данном контексте (генератор) просто выводим ошибку в консоль.
		fmt.Println("Error marshaling to JSON:", err)
		return "", nil
	}

	return orderID, jsonData
}
