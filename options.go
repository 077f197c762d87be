package fundsheet

// Options holds configuration for Update and the Pipeline.
type Options struct {
	config            *Config
	listener          Listener
	sheet             string
	backup            bool
	backupSuffix      string
	maxRows           int
	recalculateOnOpen bool
}

func defaultOptions() *Options {
	return &Options{
		backup:       true,
		backupSuffix: ".back",
	}
}

func applyOptions(opts []Option) *Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.config == nil {
		o.config = DefaultConfig()
	}
	if o.listener == nil {
		o.listener = NewLogListener(nil)
	}
	if o.maxRows <= 0 {
		o.maxRows = o.config.MaxRows
	}
	return o
}

// Option configures Update and the Pipeline.
type Option func(*Options)

// WithConfig sets the template layout (default: DefaultConfig()).
func WithConfig(cfg *Config) Option {
	return func(o *Options) { o.config = cfg }
}

// WithListener sets the progress listener (default: a LogListener on slog.Default()).
func WithListener(l Listener) Option {
	return func(o *Options) { o.listener = l }
}

// WithQuiet discards progress notifications.
func WithQuiet() Option {
	return func(o *Options) { o.listener = nopListener{} }
}

// WithSheet overrides the sheet name taken from the input file name.
func WithSheet(name string) Option {
	return func(o *Options) { o.sheet = name }
}

// WithBackup controls whether a copy of the untouched document is saved
// before any mutation (default: true).
func WithBackup(backup bool) Option {
	return func(o *Options) { o.backup = backup }
}

// WithBackupSuffix sets the suffix appended to the backup path (default: ".back").
func WithBackupSuffix(suffix string) Option {
	return func(o *Options) { o.backupSuffix = suffix }
}

// WithMaxRows sets how many rows of each column are scanned (default: the config's max_rows).
func WithMaxRows(n int) Option {
	return func(o *Options) { o.maxRows = n }
}

// WithRecalculateOnOpen asks spreadsheet applications to recalculate all
// formulas on open. Only xlsx documents honor it.
func WithRecalculateOnOpen(recalc bool) Option {
	return func(o *Options) { o.recalculateOnOpen = recalc }
}
