package api

import (
	"net/http"

	basemodels "github.com/AurumGate/AurumGate-Portal/models"
	"github.com/AurumGate/AurumGate-Portal/services/intent"
	"github.com/AurumGate/AurumGate-Portal/services/market"
	"github.com/AurumGate/AurumGate-Portal/services/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Portal struct {
	server *Server
}

func (p Portal) router(server *Server) {
	p.server = server

	serverGroupV1 := server.router.Group("/api/v1/portal")
	serverGroupV1.POST("session", p.openSession)

	authed := serverGroupV1.Group("", server.SessionMiddleware())
	authed.DELETE("session", p.closeSession)
	authed.GET("dashboard", p.dashboard)
	authed.GET("quote", p.quote)
	authed.POST("transactions/quote", p.quoteTransaction)
	authed.POST("transactions", p.submitTransaction)
	authed.GET("history", p.history)
}

type sessionRequest struct {
	CustomerID int64  `json:"customer_id" binding:"required"`
	Token      string `json:"token" binding:"required"`
}

// openSession attaches a customer signed in against the backend: the
// snapshot is fetched, the event channel opened, and a portal session id
// issued.
func (p *Portal) openSession(ctx *gin.Context) {
	var request sessionRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cc, err := p.server.portal.Attach(ctx.Request.Context(), request.CustomerID, request.Token)
	if err != nil {
		p.server.logger.Log(logrus.ErrorLevel, err.Error())
		ctx.JSON(http.StatusBadGateway, basemodels.NewError("could not load your account, try again"))
		return
	}

	snap, err := cc.Store.Snapshot()
	if err != nil {
		ctx.JSON(http.StatusBadGateway, basemodels.NewError("could not load your account, try again"))
		return
	}

	sessionID := uuid.NewString()
	sess := session.SummaryOf(request.Token, snap)
	if err := p.server.sessions.Save(ctx.Request.Context(), sessionID, sess); err != nil {
		ctx.JSON(http.StatusInternalServerError, basemodels.NewError("could not persist session"))
		return
	}

	ctx.JSON(http.StatusCreated, basemodels.NewSuccess("signed in", gin.H{
		"session_id": sessionID,
		"customer":   snap,
	}))
}

// closeSession signs the customer out: channel closed, snapshot cleared,
// persisted session wiped.
func (p *Portal) closeSession(ctx *gin.Context) {
	sessionID := ctx.GetString("session_id")
	customerID := ctx.GetInt64("customer_id")

	p.server.portal.Detach(customerID)
	if err := p.server.sessions.Clear(ctx.Request.Context(), sessionID); err != nil {
		p.server.logger.Log(logrus.ErrorLevel, err.Error())
	}

	ctx.JSON(http.StatusOK, basemodels.NewSuccess("signed out", nil))
}

func (p *Portal) dashboard(ctx *gin.Context) {
	customerID := ctx.GetInt64("customer_id")

	cc, ok := p.server.portal.Customer(customerID)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, basemodels.NewError("sign in first"))
		return
	}

	snap, err := cc.Store.Snapshot()
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, basemodels.NewError("account still loading"))
		return
	}

	ctx.JSON(http.StatusOK, basemodels.NewSuccess("dashboard", snap))
}

// quote returns the live per-gram prices for this customer's spread, or a
// loading indicator when no fresh tick is held.
func (p *Portal) quote(ctx *gin.Context) {
	customerID := ctx.GetInt64("customer_id")

	cc, ok := p.server.portal.Customer(customerID)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, basemodels.NewError("sign in first"))
		return
	}

	q, present := p.server.portal.Quotes().Current()
	if !present {
		ctx.JSON(http.StatusOK, basemodels.NewSuccess("quote", gin.H{"available": false}))
		return
	}

	var spread decimal.Decimal
	if snap, err := cc.Store.Snapshot(); err == nil {
		spread = snap.Spread
	}

	ctx.JSON(http.StatusOK, basemodels.NewSuccess("quote", gin.H{
		"available":     true,
		"symbol":        q.Symbol,
		"market_status": q.MarketStatus,
		"buy_per_gram":  market.PerGram(market.EffectiveAsk(q, spread)),
		"sell_per_gram": market.PerGram(market.EffectiveBid(q, spread)),
		"timestamp":     q.Timestamp,
	}))
}

type draftRequest struct {
	Kind           string          `json:"kind" binding:"required"`
	Asset          string          `json:"asset"`
	Quantity       decimal.Decimal `json:"quantity"`
	SourceBranchID int64           `json:"source_branch_id"`
	DestBranchID   int64           `json:"dest_branch_id"`
	PayChargeWith  string          `json:"pay_charge_with"`
}

func (r draftRequest) toDraft() intent.Draft {
	return intent.Draft{
		Kind:           intent.Kind(r.Kind),
		Asset:          intent.Asset(r.Asset),
		Quantity:       r.Quantity,
		SourceBranchID: r.SourceBranchID,
		DestBranchID:   r.DestBranchID,
		PayChargeWith:  intent.PaymentMethod(r.PayChargeWith),
	}
}

// quoteTransaction evaluates a draft without submitting, so the UI can show
// the derived figures and any blocking reason before confirmation.
func (p *Portal) quoteTransaction(ctx *gin.Context) {
	var request draftRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := p.server.portal.QuoteDraft(ctx.GetInt64("customer_id"), request.toDraft())
	if err != nil {
		p.server.logger.Log(logrus.ErrorLevel, err.Error())
		ctx.JSON(http.StatusServiceUnavailable, basemodels.NewError("could not evaluate the request"))
		return
	}

	ctx.JSON(http.StatusOK, basemodels.NewSuccess("evaluated", decision))
}

func (p *Portal) submitTransaction(ctx *gin.Context) {
	var request draftRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, record, err := p.server.portal.SubmitDraft(ctx.Request.Context(), ctx.GetInt64("customer_id"), request.toDraft())
	if err != nil {
		p.server.logger.Log(logrus.ErrorLevel, err.Error())
		ctx.JSON(http.StatusBadGateway, basemodels.NewError("request could not be submitted, your draft is preserved"))
		return
	}

	if !decision.Submittable {
		ctx.JSON(http.StatusUnprocessableEntity, basemodels.NewFieldErrors(decision.Reason, map[string]string{
			"reason_code": string(decision.Code),
		}))
		return
	}

	ctx.JSON(http.StatusCreated, basemodels.NewSuccess("request submitted", gin.H{
		"decision": decision,
		"request":  record,
	}))
}

func (p *Portal) history(ctx *gin.Context) {
	records, err := p.server.portal.History(ctx.Request.Context(), ctx.GetInt64("customer_id"))
	if err != nil {
		p.server.logger.Log(logrus.ErrorLevel, err.Error())
		ctx.JSON(http.StatusBadGateway, basemodels.NewError("could not load history"))
		return
	}

	ctx.JSON(http.StatusOK, basemodels.NewSuccess("history", records))
}
