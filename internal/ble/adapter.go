// Package ble abstracts the Bluetooth Low Energy capability used by the
// bridge: scanning for a heart rate sensor, connecting to it, and
// subscribing to Heart Rate Measurement notifications. The interfaces here
// exist so the session state machine can be tested against a mock adapter.
package ble

import "context"

// Standard Heart Rate service UUIDs.
const (
	HeartRateServiceUUID     = "0000180d-0000-1000-8000-00805f9b34fb"
	HeartRateMeasurementUUID = "00002a37-0000-1000-8000-00805f9b34fb"
)

// Device represents a discovered BLE peripheral.
type Device struct {
	Name string
	Addr string
	RSSI int
}

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Subscribe enables notifications and delivers each raw payload to
	// the callback.
	Subscribe(callback func(data []byte)) error
	// Unsubscribe disables notifications.
	Unsubscribe() error
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan discovers peripherals advertising the given service UUID and
	// returns the first one accepted by match, or nil if ctx expired
	// before any device was accepted.
	Scan(ctx context.Context, serviceUUID string, match func(Device) bool) (*Device, error)
	// Connect establishes a connection to the device at the given address.
	Connect(ctx context.Context, addr string) (Connection, error)
}
