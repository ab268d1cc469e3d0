package internal

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/qenta-cee/demandware-wcp/config"
	"github.com/qenta-cee/demandware-wcp/entity"
	"github.com/qenta-cee/demandware-wcp/services"
)

const (
	checkoutParams = "/checkout/:order_no"
	returnSuccess  = "/wirecard/success"
	returnPending  = "/wirecard/pending"
	returnCancel   = "/wirecard/cancel"
	returnFailure  = "/wirecard/failure"
	returnConfirm  = "/wirecard/confirm"
	returnService  = "/wirecard/service"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	checkout   services.Checkout
	logger     services.LogHandler
}

func NewServer(conf *config.Config) *Server {

	server := Server{
		conf: conf,
	}

	// register itself as a router for httpServer handler
	router := httprouter.New()
	server.Register(router)
	server.httpServer = &http.Server{
		Handler: router,
	}

	return &server
}

func (s *Server) Register(router *httprouter.Router) {
	router.GET(checkoutParams, s.checkoutParameters)

	// the gateway delivers return calls as GET redirects or form POSTs
	for channel, path := range map[string]string{
		entity.ChannelSuccess: returnSuccess,
		entity.ChannelPending: returnPending,
		entity.ChannelCancel:  returnCancel,
		entity.ChannelFailure: returnFailure,
		entity.ChannelConfirm: returnConfirm,
		entity.ChannelService: returnService,
	} {
		router.GET(path, s.gatewayReturn(channel))
		router.POST(path, s.gatewayReturn(channel))
	}
}

func (s *Server) SetCheckoutService(checkout services.Checkout) {
	s.checkout = checkout
}

func (s *Server) SetLogger(logger services.LogHandler) {
	s.logger = logger
}

func (s *Server) Start() error {
	if s.conf == nil {
		return fmt.Errorf("configuration not loaded")
	}

	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	if s.conf.Listen.TLS {
		s.logger.Info(fmt.Sprintf("starting https TLS on %s", serverAddress))
		err = s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
	} else {
		s.logger.Info(fmt.Sprintf("starting http on %s", serverAddress))
		err = s.httpServer.Serve(listener)
	}

	return err
}

type checkoutResponse struct {
	Url    string         `json:"url"`
	Params []entity.Param `json:"params"`
}

// checkoutParameters returns the signed parameter set the template layer
// posts to the hosted payment page. The caller must supply the customer
// email and postal code matching the order.
func (s *Server) checkoutParameters(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	orderNo := ps.ByName("order_no")
	email := r.URL.Query().Get("email")
	postalCode := r.URL.Query().Get("postal_code")
	if orderNo == "" || email == "" || postalCode == "" {
		s.logger.Warn(fmt.Sprintf("[%s] checkout parameters: incomplete order reference", reqID))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	params, err := s.checkout.BuildRequest(ctx, orderNo, email, postalCode)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] checkout parameters for order %s", reqID, orderNo), err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	response := checkoutResponse{
		Url:    s.conf.Gateway.Url,
		Params: params.Params,
	}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error(fmt.Sprintf("[%s] encode checkout response", reqID), err)
	}
}

// gatewayReturn handles one return channel. Processing failures are logged
// but always answered with 200, so the gateway does not retry a call that
// was already recorded and rejected.
func (s *Server) gatewayReturn(channel string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := WithRequestID(r.Context())
		reqID := GetRequestID(ctx)

		if err := r.ParseForm(); err != nil {
			s.logger.Error(fmt.Sprintf("[%s] %s return: parse form", reqID, channel), err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		notification := entity.NewNotification(channel, r.Form)
		s.logger.Info(fmt.Sprintf("[%s] %s return for order %s, payment state %s",
			reqID, channel, notification.OrderNo(), notification.PaymentState()))

		if err := s.checkout.HandleReturn(ctx, notification); err != nil {
			s.logger.Error(fmt.Sprintf("[%s] %s return for order %s", reqID, channel, notification.OrderNo()), err)
		}
		w.WriteHeader(http.StatusOK)
	}
}
