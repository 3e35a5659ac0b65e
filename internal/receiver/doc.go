// Package receiver drives a temperature/humidity peripheral from discovery to
// notifications and publishes every step as a resource.Resource.
//
// A Manager owns one session. Commands from the caller and callbacks from the
// BLE adapter are posted to a mailbox and handled one at a time by the
// session goroutine, so session state is never touched concurrently:
//
//	m, _ := receiver.NewManager(adapter, cfg, logger)
//	defer m.Shutdown()
//	m.StartReceiving()
//	for r := range m.Data() {
//	    fmt.Println(r)
//	}
package receiver
