package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tomashoffer/afripulse/internal"
	"github.com/tomashoffer/afripulse/internal/db"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type MediaSharer interface {
	Shares(ctx context.Context, country, category string) (internal.MediaShares, error)
}

type InboundHandler interface {
	HandleInbound(ctx context.Context, msg internal.InboundMessage) error
}

type CatalogReader interface {
	Countries(ctx context.Context) ([]db.Country, error)
	Modules() []db.Module
}

type Options struct {
	WebhookVerifyToken string
	StaticDir          string
	MaxBodyBytes       int64
	// ExposeErrors includes internal error text in 500 responses.
	ExposeErrors bool
}

type Server struct {
	store   Pinger
	media   MediaSharer
	inbound InboundHandler
	catalog CatalogReader
	opts    Options
	log     *slog.Logger
}

func NewServer(store Pinger, media MediaSharer, inbound InboundHandler, catalog CatalogReader, opts Options) *Server {
	return &Server{
		store:   store,
		media:   media,
		inbound: inbound,
		catalog: catalog,
		opts:    opts,
		log:     slog.Default(),
	}
}

// Handler returns the fully wrapped HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /health", NoStore(http.HandlerFunc(s.Health)))

	mux.Handle("GET /public/media-shares", NoStore(http.HandlerFunc(s.MediaShares)))
	mux.HandleFunc("GET /public/countries", s.Countries)
	mux.HandleFunc("GET /public/modules", s.Modules)

	mux.HandleFunc("GET /whatsapp/webhook", s.VerifyWebhook)
	mux.HandleFunc("POST /whatsapp/webhook", s.ReceiveWebhook)

	if s.opts.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.opts.StaticDir)))
	}
	mux.HandleFunc("/", s.NotFound)

	return Chain(mux,
		Recoverer(s.log, s.opts.ExposeErrors),
		RequestLogger(s.log),
		SecureHeaders,
		CORS,
		MaxBody(s.opts.MaxBodyBytes),
	)
}
