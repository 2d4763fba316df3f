// Package types defines the enums and value types shared by the graph builder, the schemas and
// the serialized specs: devices, argument types and record features.
package types

// Device is where the data of an edge lives once the graph runs.
type Device int

//go:generate go tool enumer -type=Device -transform=lower -output=gen_device_enumer.go device.go

const (
	CPU Device = iota
	GPU
)

// DeviceAffinity is the device class an operator runs on.
//
// Mixed operators take cpu inputs and produce gpu outputs (e.g. decoders), support operators
// produce values consumed by other operators' arguments (e.g. random number generators).
type DeviceAffinity int

//go:generate go tool enumer -type=DeviceAffinity -trimprefix=Affinity -transform=lower -output=gen_deviceaffinity_enumer.go device.go

const (
	AffinityCPU DeviceAffinity = iota
	AffinityGPU
	AffinityMixed
	AffinitySupport
)

// OutputDevice returns the device of the outputs produced by an operator running with this affinity:
// GPU for gpu and mixed operators, CPU otherwise.
func (a DeviceAffinity) OutputDevice() Device {
	if a == AffinityGPU || a == AffinityMixed {
		return GPU
	}
	return CPU
}
