package concierge

import (
	"context"
	"errors"
	"fmt"

	"github.com/pocketkart/pocketbot/internal/core"
)

const (
	noOrderReply = "I could not find a recent order on your account. If you ordered as a guest, reply with your order number and I will look it up."

	guestOrderReply = "I can check order status once I know who you are. Please sign in, or share your order number."
)

// orderStatusReply answers an order_status turn through the storefront
// lookup. Anonymous shoppers and shoppers without orders get a guiding reply
// instead of an error; only transport failures propagate.
func (s *Service) orderStatusReply(ctx context.Context, userID string) (string, error) {
	if s.orders == nil || userID == "" {
		return guestOrderReply, nil
	}

	status, err := s.orders.Lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNoRecentOrder) {
			return noOrderReply, nil
		}
		return "", fmt.Errorf("order lookup: %w", err)
	}

	reply := fmt.Sprintf("Your order %s is %s", status.OrderID, status.Status)
	if status.Carrier != "" {
		reply += " with " + status.Carrier
	}
	if !status.ETA.IsZero() {
		reply += ", expected " + status.ETA.Format("Monday, 2 January")
	}
	reply += "."
	if status.Instructions != "" {
		reply += " " + status.Instructions
	}
	return reply, nil
}
