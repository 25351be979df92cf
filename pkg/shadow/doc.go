// Package shadow implements the device shadow convention over MQTT:
// a JSON document per thing, requested on .../shadow/get and updated on
// .../shadow/update, with results on the accepted/rejected topics and
// desired changes on .../shadow/update/delta.
package shadow
