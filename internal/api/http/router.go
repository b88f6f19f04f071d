package http

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/security"
	"smy-nav-backend/internal/service"
	"smy-nav-backend/internal/storage"
)

// Services bundles everything the router dispatches to.
type Services struct {
	Auth         service.AuthService
	Agencies     service.AgencyService
	Participants service.ParticipantService
	Payments     service.PaymentService
	Invoices     service.InvoiceService
	Schedules    service.ScheduleService
	Batches      service.BatchService
	Dashboard    service.DashboardService
}

type RouterConfig struct {
	Services    Services
	Tokens      security.TokenManager
	Policy      security.Policy
	Catalog     config.TrainingCatalog
	Limits      storage.Limits
	Local       *storage.LocalStorage // nil unless uploads are stored on disk
	DB          *sql.DB
	Environment string
	Production  bool
}

// NewRouter mounts every endpoint under /api.
func NewRouter(cfg RouterConfig) *mux.Router {
	resp := Responder{Production: cfg.Production}
	v := NewValidator(cfg.Catalog)
	auth := NewAuthenticator(cfg.Tokens, cfg.Policy, resp)
	svc := cfg.Services

	authH := NewAuthHandler(svc.Auth, v, resp)
	participantH := NewParticipantHandler(svc.Participants, cfg.Limits, v, resp)
	paymentH := NewPaymentHandler(svc.Payments, cfg.Limits, v, resp)
	invoiceH := NewInvoiceHandler(svc.Invoices, cfg.Limits, v, resp)
	scheduleH := NewScheduleHandler(svc.Schedules, v, resp)
	batchH := NewBatchHandler(svc.Batches, v, resp)
	agencyH := NewAgencyHandler(svc.Agencies, v, resp)
	dashboardH := NewDashboardHandler(svc.Dashboard, resp)
	catalogH := NewCatalogHandler(cfg.Catalog, resp)
	fileH := NewFileHandler(cfg.Local, resp)
	healthH := NewHealthHandler(cfg.DB, cfg.Environment)

	root := mux.NewRouter()
	root.Use(RequestID, AccessLog, resp.Recover)
	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Error: &errorBody{Message: "Route not found"}})
	})

	api := root.PathPrefix("/api").Subrouter()

	// Public
	api.HandleFunc("/health", healthH.Check).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", authH.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/register-participant", authH.RegisterParticipant).Methods(http.MethodPost)
	api.HandleFunc("/training-types", catalogH.List).Methods(http.MethodGet)
	api.HandleFunc("/training-types/{code}", catalogH.Get).Methods(http.MethodGet)
	root.HandleFunc("/uploads/{folder}/{file}", fileH.Serve).Methods(http.MethodGet)

	p := api.NewRoute().Subrouter()
	p.Use(auth.Authenticate)
	req := auth.Require

	p.HandleFunc("/auth/me", authH.Me).Methods(http.MethodGet)
	p.HandleFunc("/auth/me", authH.UpdateProfile).Methods(http.MethodPut)
	p.HandleFunc("/auth/password", authH.ChangePassword).Methods(http.MethodPut)
	p.Handle("/auth/register", req(security.ActionUserRegister, authH.Register)).Methods(http.MethodPost)

	p.Handle("/participants", req(security.ActionParticipantList, participantH.List)).Methods(http.MethodGet)
	p.Handle("/participants", req(security.ActionParticipantCreate, participantH.Create)).Methods(http.MethodPost)
	p.Handle("/participants/agency-submission", req(security.ActionParticipantCreate, participantH.AgencySubmission)).Methods(http.MethodPost)
	p.Handle("/participants/self-register", req(security.ActionParticipantSelfCreate, participantH.SelfRegister)).Methods(http.MethodPost)
	p.Handle("/participants/{id:[0-9]+}", req(security.ActionParticipantList, participantH.Get)).Methods(http.MethodGet)
	p.Handle("/participants/{id:[0-9]+}", req(security.ActionParticipantUpdate, participantH.Update)).Methods(http.MethodPut)
	p.Handle("/participants/{id:[0-9]+}", req(security.ActionParticipantDelete, participantH.Delete)).Methods(http.MethodDelete)
	p.Handle("/participants/{id:[0-9]+}/documents/{kind}", req(security.ActionParticipantUpdate, participantH.UploadDocument)).Methods(http.MethodPost)

	transitions := map[domain.TransitionAction]security.Action{
		domain.ActionSubmit:          security.ActionParticipantSubmit,
		domain.ActionVerify:          security.ActionParticipantReview,
		domain.ActionReject:          security.ActionParticipantReview,
		domain.ActionAssignBatch:     security.ActionParticipantDispatch,
		domain.ActionConfirmDispatch: security.ActionParticipantDispatch,
		domain.ActionComplete:        security.ActionParticipantDispatch,
	}
	for action, perm := range transitions {
		p.Handle("/participants/{id:[0-9]+}/"+string(action), req(perm, participantH.Transition(action))).Methods(http.MethodPost)
	}

	p.Handle("/participants/{id:[0-9]+}/payment", req(security.ActionPaymentUpload, paymentH.UploadProof)).Methods(http.MethodPost)
	p.Handle("/participants/{id:[0-9]+}/payment/history", req(security.ActionParticipantList, paymentH.History)).Methods(http.MethodGet)
	p.Handle("/participants/{id:[0-9]+}/payment/approve", req(security.ActionPaymentReview, paymentH.Approve)).Methods(http.MethodPost)
	p.Handle("/participants/{id:[0-9]+}/payment/reject", req(security.ActionPaymentReview, paymentH.Reject)).Methods(http.MethodPost)

	p.Handle("/schedules", req(security.ActionScheduleView, scheduleH.List)).Methods(http.MethodGet)
	p.Handle("/schedules", req(security.ActionScheduleManage, scheduleH.Create)).Methods(http.MethodPost)
	p.Handle("/schedules/active/{program}", req(security.ActionScheduleView, scheduleH.Active)).Methods(http.MethodGet)
	p.Handle("/schedules/{id:[0-9]+}", req(security.ActionScheduleView, scheduleH.Get)).Methods(http.MethodGet)
	p.Handle("/schedules/{id:[0-9]+}", req(security.ActionScheduleManage, scheduleH.Update)).Methods(http.MethodPut)
	p.Handle("/schedules/{id:[0-9]+}", req(security.ActionScheduleManage, scheduleH.Delete)).Methods(http.MethodDelete)
	p.Handle("/schedules/{id:[0-9]+}/participants", req(security.ActionScheduleView, scheduleH.ListParticipants)).Methods(http.MethodGet)
	p.Handle("/schedules/{id:[0-9]+}/participants", req(security.ActionScheduleManage, scheduleH.AddParticipants)).Methods(http.MethodPost)
	p.Handle("/schedules/{id:[0-9]+}/participants/{participantId:[0-9]+}", req(security.ActionScheduleManage, scheduleH.RemoveParticipant)).Methods(http.MethodDelete)

	p.Handle("/batches", req(security.ActionBatchView, batchH.List)).Methods(http.MethodGet)
	p.Handle("/batches", req(security.ActionBatchManage, batchH.Create)).Methods(http.MethodPost)
	p.Handle("/batches/overview", req(security.ActionBatchView, batchH.Overview)).Methods(http.MethodGet)
	p.Handle("/batches/{id:[0-9]+}", req(security.ActionBatchView, batchH.Get)).Methods(http.MethodGet)
	p.Handle("/batches/{id:[0-9]+}", req(security.ActionBatchManage, batchH.Update)).Methods(http.MethodPut)
	p.Handle("/batches/{id:[0-9]+}", req(security.ActionBatchManage, batchH.Delete)).Methods(http.MethodDelete)
	p.Handle("/batches/{id:[0-9]+}/send-to-center", req(security.ActionBatchManage, batchH.SendToCenter)).Methods(http.MethodPost)

	p.Handle("/invoices", req(security.ActionInvoiceView, invoiceH.ListForAgency)).Methods(http.MethodGet)
	p.Handle("/invoices/admin/all", req(security.ActionInvoiceAdmin, invoiceH.ListAll)).Methods(http.MethodGet)
	p.Handle("/invoices/admin/export", req(security.ActionInvoiceAdmin, invoiceH.Export)).Methods(http.MethodGet)
	p.Handle("/invoices/{id:[0-9]+}", req(security.ActionInvoiceView, invoiceH.Get)).Methods(http.MethodGet)
	p.Handle("/invoices/{id:[0-9]+}/payment-proof", req(security.ActionInvoiceUpload, invoiceH.UploadProof)).Methods(http.MethodPost)
	p.Handle("/invoices/{id:[0-9]+}/payment-status", req(security.ActionInvoiceAdmin, invoiceH.UpdatePaymentStatus)).Methods(http.MethodPut)
	p.Handle("/invoices/{id:[0-9]+}/payment/history", req(security.ActionInvoiceView, invoiceH.History)).Methods(http.MethodGet)

	p.Handle("/agencies", req(security.ActionAgencyList, agencyH.List)).Methods(http.MethodGet)
	p.Handle("/agencies", req(security.ActionAgencyManage, agencyH.Create)).Methods(http.MethodPost)
	p.Handle("/agencies/{id:[0-9]+}", req(security.ActionAgencyList, agencyH.Get)).Methods(http.MethodGet)
	p.Handle("/agencies/{id:[0-9]+}", req(security.ActionAgencyManage, agencyH.Update)).Methods(http.MethodPut)

	p.Handle("/dashboard/stats", req(security.ActionDashboardView, dashboardH.Stats)).Methods(http.MethodGet)
	p.Handle("/dashboard/activities", req(security.ActionDashboardView, dashboardH.Activities)).Methods(http.MethodGet)
	p.Handle("/dashboard/progress", req(security.ActionDashboardView, dashboardH.Progress)).Methods(http.MethodGet)

	return root
}
