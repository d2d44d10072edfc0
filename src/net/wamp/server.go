package wamp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	"github.com/gammazero/nexus/v3/router"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/sirupsen/logrus"
)

// Server hosts the WAMP router peers connect to, over websockets.
type Server struct {
	address    string
	router     router.Router
	httpServer *http.Server
	listener   net.Listener
	tls        bool
	logger     *logrus.Entry
}

// NewServer instantiates a Server for realm. certFile and keyFile are
// optional. When both are given the server only accepts TLS connections.
func NewServer(address string,
	realm string,
	certFile string,
	keyFile string,
	logger *logrus.Entry) (*Server, error) {

	routerConfig := &router.Config{
		RealmConfigs: []*router.RealmConfig{
			{
				URI:           wamp.URI(realm),
				AnonymousAuth: true,
			},
		},
	}

	nxr, err := router.NewRouter(routerConfig, logger)
	if err != nil {
		return nil, err
	}

	wss := router.NewWebsocketServer(nxr)

	httpServer := &http.Server{
		Handler: wss,
		Addr:    address,
	}

	res := &Server{
		address:    address,
		router:     nxr,
		httpServer: httpServer,
		logger:     logger,
	}

	if certFile != "" && keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			nxr.Close()
			return nil, fmt.Errorf("error loading X509 key pair: %s", err)
		}
		httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
		res.tls = true
	}

	return res, nil
}

// Listen binds the server address. It is called by Run if needed, and lets
// callers learn the actual address when listening on port 0.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	l, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.listener = l
	s.address = l.Addr().String()
	return nil
}

// Run serves websocket connections until Shutdown is called.
func (s *Server) Run() error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.logger.WithField("address", s.address).WithField("tls", s.tls).Info("Gossip router listening")

	var err error
	if s.tls {
		// certificates are already in the TLSConfig
		err = s.httpServer.ServeTLS(s.listener, "", "")
	} else {
		err = s.httpServer.Serve(s.listener)
	}
	if err != nil && err != http.ErrServerClosed {
		s.logger.WithError(err).Error("Run")
		return err
	}
	return nil
}

// Shutdown stops the websocket server, and the wamp router
func (s *Server) Shutdown() {
	defer s.router.Close()

	if err := s.httpServer.Shutdown(context.Background()); err != nil {
		s.logger.WithError(err).Error("Shutting down http server")
	}
}

// Router returns the router, which in-process peers can connect to
// directly.
func (s *Server) Router() router.Router {
	return s.router
}

// Addr returns the address of the server
func (s *Server) Addr() string {
	return s.address
}

// URL returns the websocket URL peers dial.
func (s *Server) URL() string {
	if s.tls {
		return fmt.Sprintf("wss://%s", s.address)
	}
	return fmt.Sprintf("ws://%s", s.address)
}
