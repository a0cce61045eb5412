package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/worksreg/internal/domain/code"
	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/domain/project"
	"github.com/rpggio/worksreg/internal/domain/user"
)

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	Create(ctx context.Context, actor *user.User, req project.CreateRequest) (*project.Result, error)
	Update(ctx context.Context, actor *user.User, req project.UpdateRequest) (*project.Result, error)
	Delete(ctx context.Context, actor *user.User, req project.DeleteRequest) (*project.Result, error)
	Approve(ctx context.Context, actor *user.User, id string, expectedVersion *int64) (*project.Result, error)
	Reject(ctx context.Context, actor *user.User, id, reason string, expectedVersion *int64) (*project.Result, error)
	Restore(ctx context.Context, actor *user.User, rejectedID string) (*project.Result, error)
	PurgeRejected(ctx context.Context, actor *user.User, rejectedID string) error
	Get(ctx context.Context, id string) (*project.Record, error)
	List(ctx context.Context, opts project.ListOptions) ([]project.Record, error)
	ListRejected(ctx context.Context, opts project.ListRejectedOptions) ([]project.RejectedRecord, error)
	PreviewCode(ctx context.Context, req code.Request) (string, error)
}

// CodeService defines the code maintenance operations needed by MCP.
type CodeService interface {
	Standardize(ctx context.Context, scope code.Scope) (*code.StandardizeResult, error)
	StandardizeAll(ctx context.Context) ([]code.StandardizeResult, error)
}

// SerialService defines serial maintenance operations needed by MCP.
type SerialService interface {
	Renumber(ctx context.Context, k kind.Kind) (int, error)
}

// NotificationService defines notification operations needed by MCP.
type NotificationService interface {
	ListForRecipient(ctx context.Context, recipient string, approver bool, opts notification.ListOptions) ([]notification.Notification, error)
	MarkProcessed(ctx context.Context, id string) error
}

// Services contains all domain services needed by MCP.
type Services struct {
	Projects      ProjectService
	Codes         CodeService
	Serials       SerialService
	Notifications NotificationService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Actors        ActorResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	// DefaultActor is the username acting when authentication is off.
	DefaultActor string
	Version      string
	Logger       *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "worksreg",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Later middleware wraps earlier middleware, so the actor is resolved
	// before traffic is logged.
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))
	// Stdio is always local, so the configured default actor is trusted.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Actors))
	} else {
		server.AddReceivingMiddleware(defaultActorMiddleware(cfg.Actors, cfg.DefaultActor))
	}

	registerTools(server, cfg.Services)

	return server
}
