package atmosphere

import (
	"errors"

	"github.com/gogpu/atmosphere/internal/model"
)

var (
	// ErrInvalidParameters is returned for parameters that violate the
	// model invariants.
	ErrInvalidParameters = model.ErrInvalidParameters

	// ErrSuperseded is returned by a precomputation that was replaced by a
	// newer one before it finished. Its results are discarded.
	ErrSuperseded = errors.New("atmosphere: precomputation superseded")

	// ErrNoTextures is returned when evaluation is requested before any
	// texture set was published.
	ErrNoTextures = errors.New("atmosphere: no texture set")

	// ErrDisposed is returned by an Atmosphere after Dispose.
	ErrDisposed = errors.New("atmosphere: disposed")
)
