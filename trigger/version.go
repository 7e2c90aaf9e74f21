package trigger

// Version is stamped by release builds via
// -ldflags "-X github.com/conveyorci/trigger/trigger.Version=v1.2.3".
// It reaches Conveyor as part of the triggered_by attribution.
var Version = "dev"
