package persistence

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/asaidimu/go-datamap/core/command"
	"github.com/asaidimu/go-datamap/core/dialect"
)

// Runner executes commands. *sql.DB, *sql.Tx and *sql.Conn satisfy it.
type Runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// connector is implemented by runners that can hand out a dedicated
// connection, so that statement pairs run in one session.
type connector interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// BeforeSaver is implemented by entities that prepare themselves before being
// written. Returning an error aborts the save.
type BeforeSaver interface {
	BeforeSave(ctx context.Context) error
}

// AfterSaver is implemented by entities notified after a successful save.
type AfterSaver interface {
	AfterSave(ctx context.Context, result SaveResult)
}

// Options provides configuration for an Adapter.
type Options struct {
	// Logger receives SQL traces at Debug, row-count surprises at Warn and
	// execution failures at Error.
	Logger *zap.Logger

	// Dialect overrides driver detection.
	Dialect dialect.Dialect

	// CommandTimeout bounds each command. Zero uses DefaultConfig().
	CommandTimeout time.Duration

	// SchemaVersion hides fields introduced in later versions. Zero uses
	// DefaultConfig().
	SchemaVersion int

	// QuotedIdentifiers forces quoting on or off for identifiers without an
	// override of their own. Nil uses DefaultConfig(), then the dialect.
	QuotedIdentifiers *bool

	// IgnoreRowCount treats any affected-row count as success. Some providers
	// cannot report counts for every statement shape; enabling this weakens
	// conflict detection. Nil uses DefaultConfig(); false turns it off even
	// when the config enables it.
	IgnoreRowCount *bool

	// TableName and SaveToTable override the declared tables; KeyFields
	// overrides the declared keys.
	TableName   string
	SaveToTable string
	KeyFields   []string

	// NullStringDefault is written in place of nil *string properties.
	NullStringDefault any

	// ParameterPrefix introduces argument tokens in command.Text clauses.
	ParameterPrefix rune

	// BeforeSave runs before every insert or update; an error aborts it.
	BeforeSave func(ctx context.Context, t SaveType, entity any) error

	// AfterSave runs after every successful save.
	AfterSave func(ctx context.Context, result SaveResult, entity any)

	// BeforeExecute may inspect every command; an error cancels it with
	// ErrOperationCanceled.
	BeforeExecute func(ctx context.Context, cmd *command.Command) error

	// Metrics, when set, records command and save counters.
	Metrics *Metrics
}

// DefaultOptions returns Options with a no-op logger and every other setting
// deferred to DefaultConfig.
func DefaultOptions() *Options {
	return &Options{
		Logger:          zap.NewNop(),
		ParameterPrefix: command.DefaultParameterPrefix,
	}
}
