package cache

import "github.com/fxamacker/cbor/v2"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Keep sub-second precision on cached timestamps.
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("cache: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("cache: CBOR decoder initialization failed: " + err.Error())
	}
}

// envelope distinguishes a cached value from a cached "confirmed absent"
// marker. Found=false is the not-found sentinel.
type envelope[T any] struct {
	Found bool `cbor:"1,keyasint"`
	Value T    `cbor:"2,keyasint,omitempty"`
}

func decode[T any](data []byte) (envelope[T], error) {
	var env envelope[T]
	err := decMode.Unmarshal(data, &env)
	return env, err
}
