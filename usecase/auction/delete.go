package auction

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/repository"
	"github.com/fastygo/auction/usecase"
)

// Delete removes the target and applies the cascade rule of its variant.
func (uc *UseCase) Delete(ctx context.Context, target domain.DeleteTarget) error {
	if target == nil {
		return domain.ErrInvalidEntityKind
	}
	if err := domain.ValidateID(target.TargetID()); err != nil {
		return err
	}

	var err error
	switch t := target.(type) {
	case domain.UserTarget:
		err = uc.deleteUser(ctx, t)
	case domain.SellerTarget:
		err = uc.deleteSeller(ctx, t)
	case domain.ItemTarget:
		err = uc.deleteItem(ctx, t)
	default:
		return domain.ErrInvalidEntityKind
	}
	if err != nil {
		return err
	}

	event := domain.NewEvent(domain.EventEntityDeleted, "", "admin", uc.now())
	event.Metadata = map[string]string{"kind": string(target.Kind()), "id": target.TargetID()}
	if target.Kind() == domain.KindItem {
		event.ItemID = target.TargetID()
	}
	usecase.Publish(ctx, uc.events, uc.logger, event)
	return nil
}

// deleteUser removes the user and its purchase and like sets. Items keep the
// user's id as bidder or buyer; a later sale to that bidder fails with
// BuyerNotFound.
func (uc *UseCase) deleteUser(ctx context.Context, t domain.UserTarget) error {
	if err := uc.users.Delete(ctx, t.ID); err != nil {
		return err
	}
	uc.cache.Invalidate(ctx, usecase.UserKey(t.ID))
	return nil
}

// deleteSeller removes every item the seller owns and then the seller.
func (uc *UseCase) deleteSeller(ctx context.Context, t domain.SellerTarget) error {
	cascade, err := uc.sellers.Delete(ctx, t.ID)
	if err != nil {
		if domain.ReasonOf(err) == "" {
			uc.logger.Error("seller cascade delete failed", zap.String("seller_id", t.ID), zap.Error(err))
		}
		return err
	}
	uc.logger.Info("seller deleted", zap.String("seller_id", t.ID), zap.Strings("item_ids", cascade.ItemIDs))

	uc.invalidateCascade(ctx, cascade, usecase.SellerKey(t.ID))
	return nil
}

// deleteItem removes the item and prunes it from every reference set.
func (uc *UseCase) deleteItem(ctx context.Context, t domain.ItemTarget) error {
	cascade, err := uc.items.Delete(ctx, t.ID)
	if err != nil {
		return err
	}
	uc.invalidateCascade(ctx, cascade)
	return nil
}

// invalidateCascade drops the cached view of every aggregate whose reference
// sets lost an item, plus the open listing.
func (uc *UseCase) invalidateCascade(ctx context.Context, cascade *repository.Cascade, extra ...string) {
	keys := append([]string{usecase.ListingKey}, extra...)
	for _, sellerID := range cascade.SellerIDs {
		keys = append(keys, usecase.SellerKey(sellerID))
	}
	for _, userID := range cascade.UserIDs {
		keys = append(keys, usecase.UserKey(userID))
	}
	uc.cache.Invalidate(ctx, keys...)
}
