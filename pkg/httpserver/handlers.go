package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/internal/accounts"
	"github.com/mselser95/polymarket-fleet/internal/dispatch"
	"github.com/mselser95/polymarket-fleet/internal/scheduler"
)

// APIHandler serves the fleet control API.
type APIHandler struct {
	store   accounts.Store
	sched   *scheduler.Scheduler
	balance func(r *http.Request, account accounts.Account) (float64, error)
	logger  *zap.Logger
}

// NewAPIHandler creates the control API handler. balance may be nil,
// in which case the balance endpoint reports failure.
func NewAPIHandler(
	store accounts.Store,
	sched *scheduler.Scheduler,
	balance func(r *http.Request, account accounts.Account) (float64, error),
	logger *zap.Logger,
) *APIHandler {
	return &APIHandler{
		store:   store,
		sched:   sched,
		balance: balance,
		logger:  logger,
	}
}

// Routes builds the /api router.
func (h *APIHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.listAccounts)
		r.Post("/", h.addAccount)
		r.Get("/{id}", h.getAccount)
		r.Put("/{id}", h.updateAccount)
		r.Delete("/{id}", h.deleteAccount)
		r.Post("/{id}/balance", h.refreshBalance)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Post("/start", h.startAccount)
		r.Post("/stop", h.stopAccount)
		r.Post("/start_auto_monitoring", h.startAutoMonitoring)
		r.Post("/stop_auto_monitoring", h.stopAutoMonitoring)
		r.Get("/running", h.runningAccounts)
		r.Get("/status/{id}", h.accountStatus)
		r.Get("/scheduler_status", h.schedulerStatus)
		r.Post("/redeem_all", h.redeemAll)
		r.Post("/sell_all", h.sellAll)
		r.Post("/manual_order", h.manualOrder)
	})

	r.Get("/strategy", h.getStrategy)
	r.Put("/strategy", h.setStrategy)

	return r
}

// envelope is the uniform response shape.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		h.logger.Error("response-encode-failed", zap.Error(err))
	}
}

func (h *APIHandler) ok(w http.ResponseWriter, message string, data interface{}) {
	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func (h *APIHandler) fail(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, envelope{Success: false, Message: message})
}

func (h *APIHandler) failErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		h.fail(w, http.StatusNotFound, "account not found")
	case errors.Is(err, scheduler.ErrNoAccounts):
		h.fail(w, http.StatusBadRequest, "no accounts available")
	default:
		h.fail(w, http.StatusInternalServerError, err.Error())
	}
}

// accountView is the API shape of an account. Credentials never leave
// the process.
type accountView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ProxyWallet string    `json:"proxy_wallet,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Status      string    `json:"status"`
	BalanceUSDC float64   `json:"balance_usdc"`
	Armed       bool      `json:"armed"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *APIHandler) view(a accounts.Account) accountView {
	return accountView{
		ID:          a.ID,
		Name:        a.Name,
		ProxyWallet: a.ProxyWallet,
		Notes:       a.Notes,
		Status:      a.Status,
		BalanceUSDC: a.BalanceUSDC,
		Armed:       h.sched.AccountArmed(a.ID),
		CreatedAt:   a.CreatedAt,
	}
}

func (h *APIHandler) listAccounts(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.List(r.Context())
	if err != nil {
		h.failErr(w, err)
		return
	}

	views := make([]accountView, 0, len(all))
	for _, a := range all {
		views = append(views, h.view(a))
	}
	h.ok(w, "", views)
}

type accountRequest struct {
	Name          string `json:"name"`
	PrivateKey    string `json:"private_key"`
	ProxyWallet   string `json:"proxy_wallet"`
	APIKey        string `json:"api_key"`
	APISecret     string `json:"api_secret"`
	APIPassphrase string `json:"api_passphrase"`
	Notes         string `json:"notes"`
	Status        string `json:"status"`
}

func (h *APIHandler) addAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.PrivateKey == "" {
		h.fail(w, http.StatusBadRequest, "name and private_key are required")
		return
	}

	status := req.Status
	if status == "" {
		status = accounts.StatusActive
	}

	id, err := h.store.Add(r.Context(), accounts.Account{
		Name:          req.Name,
		PrivateKey:    req.PrivateKey,
		ProxyWallet:   req.ProxyWallet,
		APIKey:        req.APIKey,
		APISecret:     req.APISecret,
		APIPassphrase: req.APIPassphrase,
		Notes:         req.Notes,
		Status:        status,
	})
	if err != nil {
		h.failErr(w, err)
		return
	}

	h.logger.Info("account-added", zap.Int64("account_id", id), zap.String("name", req.Name))
	h.ok(w, "account created", map[string]int64{"id": id})
}

func (h *APIHandler) accountID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *APIHandler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := h.accountID(r)
	if err != nil {
		h.fail(w, http.StatusBadRequest, "invalid account id")
		return
	}

	a, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.failErr(w, err)
		return
	}
	h.ok(w, "", h.view(*a))
}

func (h *APIHandler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := h.accountID(r)
	if err != nil {
		h.fail(w, http.StatusBadRequest, "invalid account id")
		return
	}

	existing, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.failErr(w, err)
		return
	}

	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated := *existing
	if req.Name != "" {
		updated.Name = req.Name
	}
	if req.PrivateKey != "" {
		updated.PrivateKey = req.PrivateKey
	}
	if req.ProxyWallet != "" {
		updated.ProxyWallet = req.ProxyWallet
	}
	if req.APIKey != "" {
		updated.APIKey = req.APIKey
	}
	if req.APISecret != "" {
		updated.APISecret = req.APISecret
	}
	if req.APIPassphrase != "" {
		updated.APIPassphrase = req.APIPassphrase
	}
	if req.Notes != "" {
		updated.Notes = req.Notes
	}
	if req.Status != "" {
		updated.Status = req.Status
	}

	if err := h.store.Update(r.Context(), updated); err != nil {
		h.failErr(w, err)
		return
	}
	h.ok(w, "account updated", h.view(updated))
}

func (h *APIHandler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := h.accountID(r)
	if err != nil {
		h.fail(w, http.StatusBadRequest, "invalid account id")
		return
	}

	// An armed account is disarmed before its record goes away.
	if h.sched.AccountArmed(id) {
		if err := h.sched.StopAccount(id); err != nil {
			h.failErr(w, err)
			return
		}
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.failErr(w, err)
		return
	}
	h.ok(w, "account deleted", nil)
}

func (h *APIHandler) refreshBalance(w http.ResponseWriter, r *http.Request) {
	id, err := h.accountID(r)
	if err != nil {
		h.fail(w, http.StatusBadRequest, "invalid account id")
		return
	}

	a, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.failErr(w, err)
		return
	}

	if h.balance == nil {
		h.fail(w, http.StatusServiceUnavailable, "balance lookups not configured")
		return
	}

	usdc, err := h.balance(r, *a)
	if err != nil {
		h.failErr(w, fmt.Errorf("fetch balance: %w", err))
		return
	}

	if err := h.store.UpdateBalance(r.Context(), id, usdc); err != nil {
		h.failErr(w, err)
		return
	}
	h.ok(w, "balance refreshed", map[string]float64{"balance_usdc": usdc})
}

type taskRequest struct {
	AccountID int64 `json:"account_id"`
}

func (h *APIHandler) startAccount(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == 0 {
		h.fail(w, http.StatusBadRequest, "account_id is required")
		return
	}

	if err := h.sched.StartAccount(r.Context(), req.AccountID); err != nil {
		h.failErr(w, err)
		return
	}
	h.ok(w, "account started", nil)
}

func (h *APIHandler) stopAccount(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == 0 {
		h.fail(w, http.StatusBadRequest, "account_id is required")
		return
	}

	if err := h.sched.StopAccount(req.AccountID); err != nil {
		h.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	h.ok(w, "account stopped", nil)
}

func (h *APIHandler) startAutoMonitoring(w http.ResponseWriter, _ *http.Request) {
	h.sched.StartAutoMonitoring()
	h.ok(w, "auto monitoring started", map[string]string{
		"state": string(h.sched.CurrentState()),
	})
}

func (h *APIHandler) stopAutoMonitoring(w http.ResponseWriter, _ *http.Request) {
	h.sched.StopAutoMonitoring()
	h.ok(w, "auto monitoring stopped", map[string]string{
		"state": string(h.sched.CurrentState()),
	})
}

func (h *APIHandler) runningAccounts(w http.ResponseWriter, _ *http.Request) {
	h.ok(w, "", map[string]interface{}{
		"account_ids": h.sched.RunningAccounts(),
	})
}

func (h *APIHandler) accountStatus(w http.ResponseWriter, r *http.Request) {
	id, err := h.accountID(r)
	if err != nil {
		h.fail(w, http.StatusBadRequest, "invalid account id")
		return
	}

	h.ok(w, "", map[string]interface{}{
		"account_id": id,
		"armed":      h.sched.AccountArmed(id),
	})
}

func (h *APIHandler) schedulerStatus(w http.ResponseWriter, _ *http.Request) {
	st := h.sched.Status()
	h.ok(w, "", map[string]interface{}{
		"state":           string(st.State),
		"armed_accounts":  st.ArmedAccounts,
		"last_redeem_run": st.LastRedeemRun,
		"strategy":        strategyToWire(st.StrategyConfig),
	})
}

// strategyWire is the JSON shape of the strategy config. Durations go
// over the wire in the units operators configure them in.
type strategyWire struct {
	OrderAmountUSD         float64 `json:"order_amount_usd"`
	PriceThreshold         float64 `json:"price_threshold"`
	CheckWindowMinutes     float64 `json:"check_window_minutes"`
	MonitorIntervalSeconds float64 `json:"monitor_interval_seconds"`
	RedeemIntervalSeconds  float64 `json:"redeem_interval_seconds"`
}

func strategyToWire(cfg scheduler.StrategyConfig) strategyWire {
	return strategyWire{
		OrderAmountUSD:         cfg.OrderAmountUSD,
		PriceThreshold:         cfg.PriceThreshold,
		CheckWindowMinutes:     cfg.CheckWindow.Minutes(),
		MonitorIntervalSeconds: cfg.MonitorInterval.Seconds(),
		RedeemIntervalSeconds:  cfg.RedeemInterval.Seconds(),
	}
}

func strategyFromWire(wire strategyWire) scheduler.StrategyConfig {
	return scheduler.StrategyConfig{
		OrderAmountUSD:  wire.OrderAmountUSD,
		PriceThreshold:  wire.PriceThreshold,
		CheckWindow:     time.Duration(wire.CheckWindowMinutes * float64(time.Minute)),
		MonitorInterval: time.Duration(wire.MonitorIntervalSeconds * float64(time.Second)),
		RedeemInterval:  time.Duration(wire.RedeemIntervalSeconds * float64(time.Second)),
	}
}

func (h *APIHandler) getStrategy(w http.ResponseWriter, _ *http.Request) {
	h.ok(w, "", strategyToWire(h.sched.StrategyConfig()))
}

func (h *APIHandler) setStrategy(w http.ResponseWriter, r *http.Request) {
	// Absent fields keep their current values.
	wire := strategyToWire(h.sched.StrategyConfig())
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.sched.SetStrategyConfig(strategyFromWire(wire))
	h.ok(w, "strategy updated", wire)
}

func dispatchData(res dispatch.Result) map[string]int {
	return map[string]int{
		"succeeded": res.Succeeded,
		"failed":    res.Failed,
		"timed_out": res.TimedOut,
		"total":     res.Total,
	}
}

func (h *APIHandler) redeemAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.sched.RedeemAll(r.Context())
	if err != nil {
		h.failErr(w, err)
		return
	}
	h.ok(w, fmt.Sprintf("redeemed for %d/%d accounts", res.Succeeded, res.Total), dispatchData(res))
}

func (h *APIHandler) sellAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.sched.SellAll(r.Context())
	if err != nil {
		h.failErr(w, err)
		return
	}
	h.ok(w, fmt.Sprintf("sold for %d/%d accounts", res.Succeeded, res.Total), dispatchData(res))
}

type manualOrderRequest struct {
	Market     string  `json:"market"`
	AccountIDs []int64 `json:"account_ids"`
	Side       string  `json:"side"`
}

func (h *APIHandler) manualOrder(w http.ResponseWriter, r *http.Request) {
	var req manualOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Market == "" {
		h.fail(w, http.StatusBadRequest, "market is required")
		return
	}

	res, err := h.sched.ManualPlaceOrder(r.Context(), req.Market, req.AccountIDs, req.Side)
	if err != nil {
		h.failErr(w, err)
		return
	}
	h.ok(w, fmt.Sprintf("ordered for %d/%d accounts", res.Succeeded, res.Total), dispatchData(res))
}
