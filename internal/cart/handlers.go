package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/harga-api/internal/common"
	"github.com/noah-isme/harga-api/internal/ledger"
	"github.com/noah-isme/harga-api/internal/pricing"
)

// Handler exposes the cart pricing endpoints.
type Handler struct {
	Rec      *Reconciler
	Validate *validator.Validate
}

// Routes mounts the pricing surface under /carts/{cartID}.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/carts/{cartID}", func(r chi.Router) {
		r.Get("/pricing", h.GetPricing)
		r.Post("/pricing/sync", h.SyncPrices)
		r.Post("/reconcile", h.Reconcile)
		r.Post("/promo", h.ApplyPromo)
		r.Delete("/promo", h.RemovePromo)
		r.Post("/coupon", h.ApplyCoupon)
		r.Delete("/coupon", h.RemoveCoupon)
		r.Post("/points", h.RedeemPoints)
		r.Delete("/points", h.CancelPoints)
		r.Post("/pwp", h.ApplyPWP)
		r.Delete("/pwp/{ruleID}", h.RemovePWP)
		r.Get("/receipt", h.Receipt)
	})
}

type applyPromoRequest struct {
	PromoID string `json:"promoId" validate:"required,uuid_rfc4122"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

type redeemPointsRequest struct {
	Points int64 `json:"points" validate:"required,gt=0"`
}

type applyPWPRequest struct {
	RuleID string `json:"ruleId" validate:"required,uuid_rfc4122"`
}

// GetPricing returns the full pricing snapshot without mutating the cart.
func (h *Handler) GetPricing(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	snap, err := h.Rec.Snapshot(r.Context(), cartID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, snap, "")
}

// SyncPrices confirms drifted prices, overwriting stored unit prices with
// the tier-correct ones.
func (h *Handler) SyncPrices(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	snap, err := h.Rec.SyncPrices(r.Context(), cartID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, snap, "Prices updated")
}

// Reconcile converges the cart's discount state against current catalog,
// membership and promotion data.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	snap, err := h.Rec.Reconcile(r.Context(), cartID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, snap, "")
}

// ApplyPromo attaches a membership promo to the cart.
func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var req applyPromoRequest
	if !h.decode(w, r, &req) {
		return
	}
	promoID, err := uuid.Parse(req.PromoID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid promo id", nil)
		return
	}
	res, err := h.Rec.ApplyMembershipPromo(r.Context(), cartID, promoID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, res.Snapshot, res.Message)
}

// RemovePromo clears the applied membership promo.
func (h *Handler) RemovePromo(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	res, err := h.Rec.RemoveMembershipPromo(r.Context(), cartID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, res.Snapshot, res.Message)
}

// ApplyCoupon attaches a coupon by code; a different code replaces the
// previous coupon.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var req applyCouponRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Rec.ApplyCoupon(r.Context(), cartID, req.Code)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, res.Snapshot, res.Message)
}

// RemoveCoupon clears the applied coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	res, err := h.Rec.RemoveCoupon(r.Context(), cartID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, res.Snapshot, res.Message)
}

// RedeemPoints converts loyalty points into a cart discount.
func (h *Handler) RedeemPoints(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var req redeemPointsRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Rec.RedeemPoints(r.Context(), cartID, req.Points)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, res.Snapshot, res.Message)
}

// CancelPoints returns redeemed points to the shopper.
func (h *Handler) CancelPoints(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	res, err := h.Rec.CancelPoints(r.Context(), cartID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, res.Snapshot, res.Message)
}

// ApplyPWP activates a purchase-with-purchase offer.
func (h *Handler) ApplyPWP(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var req applyPWPRequest
	if !h.decode(w, r, &req) {
		return
	}
	ruleID, err := uuid.Parse(req.RuleID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid rule id", nil)
		return
	}
	res, err := h.Rec.ApplyPWPOffer(r.Context(), cartID, ruleID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, res.Snapshot, res.Message)
}

// RemovePWP removes the reward line for a rule from the cart.
func (h *Handler) RemovePWP(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	ruleID, err := uuid.Parse(chi.URLParam(r, "ruleID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid rule id", nil)
		return
	}
	res, err := h.Rec.RemovePWPOffer(r.Context(), cartID, ruleID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, res.Snapshot, res.Message)
}

// receiptLine is one row of the itemized receipt.
type receiptLine struct {
	Title       string              `json:"title"`
	Qty         int                 `json:"qty"`
	UnitPrice   int64               `json:"unitPrice"`
	LineTotal   int64               `json:"lineTotal"`
	Reward      bool                `json:"reward,omitempty"`
	Adjustments []ledger.Adjustment `json:"adjustments,omitempty"`
}

type receipt struct {
	CartID   uuid.UUID       `json:"cartId"`
	Currency string          `json:"currency"`
	Lines    []receiptLine   `json:"lines"`
	Totals   pricing.Summary `json:"totals"`
}

// Receipt returns an itemized receipt view: non-suspended lines priced at
// the tier-correct price, with the per-source discount breakdown.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	snap, err := h.Rec.Snapshot(r.Context(), cartID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	rc := receipt{CartID: snap.CartID, Currency: snap.Currency, Totals: snap.Totals}
	for _, it := range snap.Items {
		if it.Suspended {
			continue
		}
		rc.Lines = append(rc.Lines, receiptLine{
			Title:       it.Title,
			Qty:         it.Qty,
			UnitPrice:   it.CorrectUnitPrice,
			LineTotal:   int64(it.Qty) * it.CorrectUnitPrice,
			Reward:      it.Reward,
			Adjustments: it.Adjustments,
		})
	}
	common.JSONData(w, http.StatusOK, rc, "")
}

func (h *Handler) cartID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "cartID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid cart id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(v); err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, err.Error(), nil)
			return false
		}
	}
	return true
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	if !common.IsAppError(err) && errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "cart not found", nil)
		return
	}
	common.JSONAppError(w, err)
}
