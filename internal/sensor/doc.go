// Package sensor holds the temperature/humidity domain types and the decoder
// for raw notification payloads sent by the sensor firmware.
package sensor
