// Package envsense is a BLE peripheral reporting temperature, rainfall
// and battery level through the standard GATT services.
package envsense
