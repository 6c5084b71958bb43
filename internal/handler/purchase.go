package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pzklab/dietetics-api/internal/model"
	"github.com/pzklab/dietetics-api/internal/payment"
	"github.com/pzklab/dietetics-api/internal/repository"
)

// PurchaseHandler exposes the purchase flow: initiation by patients and
// status polling after the buyer returns from the hosted payment form.
type PurchaseHandler struct {
	Orchestrator *payment.Orchestrator
	Users        *repository.UserRepo
	Purchases    *repository.PurchaseRepo
	CatalogURL   string // where "already has access" conflicts point the client
}

// NewPurchaseHandler constructs a PurchaseHandler.
func NewPurchaseHandler(o *payment.Orchestrator, users *repository.UserRepo, purchases *repository.PurchaseRepo, catalogURL string) *PurchaseHandler {
	if o == nil || users == nil || purchases == nil {
		panic("nil dependency passed to NewPurchaseHandler")
	}
	return &PurchaseHandler{Orchestrator: o, Users: users, Purchases: purchases, CatalogURL: catalogURL}
}

type initiatePurchaseReq struct {
	Module uint8  `json:"module"` // single module: 1..3
	Bundle string `json:"bundle"` // or bundle: "ALL"
}

type initiatePurchaseResp struct {
	RedirectURL   string `json:"redirectUrl"`
	TransactionID string `json:"transactionId"`
}

// requestedItem maps the request body onto a purchase item.  Exactly
// one of module/bundle must be supplied.
func (r initiatePurchaseReq) requestedItem() (string, bool) {
	if strings.EqualFold(r.Bundle, model.ItemAll) {
		return model.ItemAll, r.Module == 0
	}
	switch model.Module(r.Module) {
	case model.Module1:
		return model.ItemModule1, r.Bundle == ""
	case model.Module2:
		return model.ItemModule2, r.Bundle == ""
	case model.Module3:
		return model.ItemModule3, r.Bundle == ""
	}
	return "", false
}

// Initiate handles POST /v1/purchases.  On success it returns the
// hosted payment form URL and the transaction id.  When the buyer
// already holds active access to everything the item would unlock, it
// answers 409 with a redirect target to the content catalog, a
// recoverable conflict rather than a failure.
func (h *PurchaseHandler) Initiate(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
	}
	var req initiatePurchaseReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, codeValidation, "invalid body")
	}
	item, ok := req.requestedItem()
	if !ok {
		return respondErr(c, http.StatusUnprocessableEntity, codeValidation, "specify module 1-3 or bundle ALL")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	email := ""
	if u, uerr := h.Users.GetByID(ctx, userID); uerr == nil {
		email = u.Email
	}

	res, err := h.Orchestrator.InitiatePurchase(ctx, userID, item, email)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrAlreadyEntitled):
			return respondErr(c, http.StatusConflict, codeConflict, "already has access",
				echo.Map{"redirectUrl": h.CatalogURL})
		case errors.Is(err, payment.ErrUnknownItem):
			return respondErr(c, http.StatusUnprocessableEntity, codeValidation, "unknown purchase item")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "purchase initiation failed")
	}
	return respond(c, http.StatusCreated, initiatePurchaseResp{
		RedirectURL:   res.RedirectURL,
		TransactionID: res.TransactionID,
	})
}

type purchaseResp struct {
	ID          string     `json:"id"`
	Item        string     `json:"item"`
	AmountGrosz int64      `json:"amountGrosz"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

// Get handles GET /v1/purchases/:id.  Buyers poll it after returning
// from the gateway to learn whether their payment has settled yet.
// Ownership is enforced: a transaction belonging to someone else looks
// exactly like a missing one.
func (h *PurchaseHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return respondErr(c, http.StatusBadRequest, codeValidation, "invalid transaction id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	txn, err := h.Purchases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondErr(c, http.StatusNotFound, codeNotFound, "not available")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "lookup failed")
	}
	if txn.UserID != userID {
		return respondErr(c, http.StatusNotFound, codeNotFound, "not available")
	}
	return respond(c, http.StatusOK, purchaseResp{
		ID:          txn.ID,
		Item:        txn.Item,
		AmountGrosz: txn.AmountGrosz,
		Status:      txn.Status,
		CreatedAt:   txn.CreatedAt,
		ResolvedAt:  txn.ResolvedAt,
	})
}
