package region

// AddressMode selects how app_descriptor_base_address is interpreted.
type AddressMode int

const (
	// Absolute treats the base address as an address in the same space as
	// the header. RegionBase is subtracted to find the buffer offset.
	Absolute AddressMode = iota

	// Relative treats the base address as a byte offset from the start of
	// the header.
	Relative
)

func (m AddressMode) String() string {
	switch m {
	case Absolute:
		return "absolute"
	case Relative:
		return "relative"
	default:
		return "unknown"
	}
}

// Logger is an optional logging interface. *slog.Logger satisfies it.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Warn logs a warning message with optional key-value pairs
	Warn(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type options struct {
	addressMode        AddressMode
	regionBase         uint32
	strictSlotIdentity bool
	maxSize            int
	logger             Logger
}

func defaultOptions() options {
	return options{
		addressMode:        Absolute,
		strictSlotIdentity: true,
		maxSize:            DefaultMaxSize,
		logger:             nopLogger{},
	}
}

// Option configures Load and New.
type Option func(*options)

// WithAddressMode sets the base address convention. Default is Absolute.
//
// Example:
//
//	d, err := region.Load(buf, region.WithAddressMode(region.Relative))
func WithAddressMode(mode AddressMode) Option {
	return func(o *options) {
		o.addressMode = mode
	}
}

// WithRegionBase sets the absolute address of the first byte of the buffer.
// Only used in Absolute mode.
//
// Example:
//
//	d, err := region.Load(buf, region.WithRegionBase(0x0800_0000))
func WithRegionBase(base uint32) Option {
	return func(o *options) {
		o.regionBase = base
	}
}

// WithSlotIdentityCheck controls whether a descriptor whose app_slot_number
// differs from its array position fails the load. Default is true. When
// disabled the mismatch is logged as a warning.
func WithSlotIdentityCheck(strict bool) Option {
	return func(o *options) {
		o.strictSlotIdentity = strict
	}
}

// DefaultMaxSize is the largest region New builds unless WithMaxSize says
// otherwise.
const DefaultMaxSize = 1 << 20

// WithMaxSize caps the size in bytes of the region New builds, header and
// descriptor array included. n <= 0 removes the cap. Load ignores it.
//
// Example:
//
//	d, err := region.New(0, 0x20, apps, region.WithMaxSize(0x200))
func WithMaxSize(n int) Option {
	return func(o *options) {
		o.maxSize = n
	}
}

// WithLogger sets a logger for load diagnostics.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
