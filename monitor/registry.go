package monitor

import (
	"github.com/susaninz/geosite-manager/errors"
)

// DeviceConfig is the static configuration for one monitored device.
type DeviceConfig struct {
	// Key is the stable identifier (room/slot name), unique across devices.
	Key string `json:"key"`
	// Name is the human-readable device name.
	Name string `json:"name"`
	// Hostname the device announces via DHCP.
	Hostname string `json:"hostname"`
	// MAC is the hardware address.
	MAC string `json:"mac"`
	// IP is the initially configured network address.
	IP string `json:"ip"`
	// Icon used when rendering the device in chat messages.
	Icon string `json:"icon"`
}

// registry holds all configured devices. It is populated once at engine
// construction, its size and keys are fixed for process lifetime and it
// therefore needs no synchronization of its own.
type registry struct {
	devices map[string]*device
	// order keeps configuration order for deterministic listing.
	order []string
}

func newRegistry(configs []DeviceConfig, maxEvents int) registry {
	reg := registry{
		devices: make(map[string]*device, len(configs)),
		order:   make([]string, 0, len(configs)),
	}
	for _, config := range configs {
		reg.devices[config.Key] = &device{
			key: config.Key,
			identity: Identity{
				Name:     config.Name,
				Hostname: config.Hostname,
				MAC:      config.MAC,
				Icon:     config.Icon,
			},
			networkAddress: config.IP,
			status:         StatusUnknown,
			journal:        newJournal(maxEvents),
		}
		reg.order = append(reg.order, config.Key)
	}
	return reg
}

// lookup returns the device with the given key. Devices are never created on
// lookup.
func (reg registry) lookup(key string) (*device, error) {
	d, ok := reg.devices[key]
	if !ok {
		return nil, errors.NewNotFoundError("unknown device", errors.KindDeviceNotFound,
			errors.Details{"device_key": key})
	}
	return d, nil
}

// all returns all devices in configuration order.
func (reg registry) all() []*device {
	devices := make([]*device, 0, len(reg.order))
	for _, key := range reg.order {
		devices = append(devices, reg.devices[key])
	}
	return devices
}
