package atmosphere

import (
	"github.com/gogpu/atmosphere/geodesy"
	"github.com/gogpu/atmosphere/precompute"
	"github.com/gogpu/atmosphere/render"
)

// Option configures an Atmosphere during creation.
//
// Example:
//
//	atm, err := atmosphere.New(params,
//	    atmosphere.WithBackend("nodegraph"),
//	    atmosphere.WithHalfFloat(true),
//	)
type Option func(*options)

type options struct {
	resolution         Resolution
	orders             int
	halfFloat          bool
	combinedScattering bool
	allowFallback      bool
	backend            string
	workers            int
	caps               *render.DeviceCapabilities
	ellipsoid          geodesy.Ellipsoid
	altitudeCorrection bool
}

func defaultOptions() options {
	return options{
		resolution:         DefaultResolution(),
		orders:             precompute.DefaultScatteringOrders,
		ellipsoid:          geodesy.WGS84,
		altitudeCorrection: true,
	}
}

// WithResolution sets the lookup table sizes.
func WithResolution(r Resolution) Option {
	return func(o *options) {
		o.resolution = r
	}
}

// WithScatteringOrders sets the number of scattering orders to precompute.
// Order 1 is single scattering only.
func WithScatteringOrders(n int) Option {
	return func(o *options) {
		o.orders = n
	}
}

// WithHalfFloat publishes tables with binary16 precision.
func WithHalfFloat(half bool) Option {
	return func(o *options) {
		o.halfFloat = half
	}
}

// WithCombinedScattering packs single Mie scattering into the alpha channel
// of the scattering table instead of storing a separate table.
func WithCombinedScattering(combined bool) Option {
	return func(o *options) {
		o.combinedScattering = combined
	}
}

// WithFallback lets a device without float32 filtering fall back to
// half-float tables. Disabled by default: such a device fails with a
// *render.CapabilityError unless the caller opts in.
func WithFallback(allow bool) Option {
	return func(o *options) {
		o.allowFallback = allow
	}
}

// WithBackend selects a precompute backend by name. The default picks the
// highest priority registered backend.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithWorkers sets the worker count of the built-in backends. Zero means
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithCapabilities describes the target device. Without it, tables are
// sized for the software capabilities.
func WithCapabilities(caps render.DeviceCapabilities) Option {
	return func(o *options) {
		o.caps = &caps
	}
}

// WithEllipsoid sets the planet surface used for placement. Defaults to
// WGS84.
func WithEllipsoid(e geodesy.Ellipsoid) Option {
	return func(o *options) {
		o.ellipsoid = e
	}
}

// WithAltitudeCorrection moves the atmosphere under the camera onto the
// osculating sphere of the ellipsoid, so that altitudes above the ellipsoid
// match altitudes above the spherical ground. Enabled by default.
func WithAltitudeCorrection(enabled bool) Option {
	return func(o *options) {
		o.altitudeCorrection = enabled
	}
}

func (o *options) config() precompute.Config {
	return precompute.Config{
		Resolution:         o.resolution,
		ScatteringOrders:   o.orders,
		HalfFloat:          o.halfFloat,
		CombinedScattering: o.combinedScattering,
		AllowFallback:      o.allowFallback,
		Capabilities:       o.caps,
	}
}
