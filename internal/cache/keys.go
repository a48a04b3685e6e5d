package cache

import (
	"fmt"
	"strconv"

	"collect-ledger-go/internal/store"
)

func CollectKey(collectId string) string {
	return "collects:get:" + collectId
}

func PaymentKey(paymentId string) string {
	return "payments:get:" + paymentId
}

// CollectListKey encodes every filter field so distinct listings never share an entry
func CollectListKey(f store.CollectFilter) string {
	active := "any"
	if f.Active != nil {
		active = strconv.FormatBool(*f.Active)
	}
	return fmt.Sprintf("collects:list:author=%s&occasion=%s&active=%s&limit=%d&offset=%d",
		f.AuthorId, f.Occasion, active, f.Limit, f.Offset)
}

func PaymentListKey(f store.PaymentFilter) string {
	return fmt.Sprintf("payments:list:collect=%s&user=%s&method=%s&status=%s&limit=%d&offset=%d",
		f.CollectId, f.UserId, f.Method, f.Status, f.Limit, f.Offset)
}
