package cart

import "github.com/wyfcoding/cartd/internal/xerrors"

// cartCapacity is the maximum number of open line items a cart may hold,
// matching original_source/src/domain/cart/errors.rs's CannotAddItemCartFull.
const cartCapacity = 3

func errCartDoesNotExist(cartID string) error {
	return xerrors.Domain("cart " + cartID + " does not exist").WithContext("cart_id", cartID)
}

func errCartFull(cartID string) error {
	return xerrors.Domain("cart is full").WithContext("cart_id", cartID)
}

func errCannotRemoveItem(cartID, itemID string) error {
	return xerrors.Domain("item not found in cart").WithContext("cart_id", cartID).WithContext("item_id", itemID)
}

func errCannotSubmitEmptyCart(cartID string) error {
	return xerrors.Domain("cannot submit an empty cart").WithContext("cart_id", cartID)
}

func errCannotSubmitCartTwice(cartID string) error {
	return xerrors.Domain("cart has already been submitted").WithContext("cart_id", cartID)
}

func errCartCannotBeAltered(cartID string) error {
	return xerrors.Domain("a submitted cart cannot be altered").WithContext("cart_id", cartID)
}
