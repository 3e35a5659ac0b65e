// Package device defines the Bluetooth Low Energy collaborator contracts used
// by the receiver: a scanning adapter that hands out connection handles, the
// GATT handle itself, and the callbacks the radio stack delivers.
//
// The contracts are deliberately callback based. Every operation on a Gatt
// handle is fire-and-forget and its outcome arrives later through the
// GattCallback registered on Connect, usually on a goroutine owned by the
// radio stack. Implementations live in sub-packages (see go-ble).
package device
