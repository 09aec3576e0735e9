// Package notify implements a durable, multi-channel, priority-ordered
// notification delivery queue with retry support.
//
// One logical send request fans out into one record per
// (recipient, channel) pair. Records are later drained in bounded,
// on-demand processing runs that claim a batch, dispatch each record
// through a channel adapter and absorb the outcome back into record
// state. Partial failure never double-sends or loses a record: the
// conditional claim guarantees at most one dispatch attempt transition
// per record per run.
//
// The package is organised around four components:
//
//   - Fanout    — validates a send request, resolves the audience and
//     writes the recipient x channel matrix atomically
//   - Router    — maps a record's channel to its transport Adapter
//   - Processor — claims eligible records and runs them to a terminal
//     or retryable state
//   - Storage   — the system of record; all mutation is via
//     single-record conditional transitions
//
// Components interact only through the Storage, Resolver and Adapter
// interfaces, keeping the pipeline decoupled from persistence, the
// membership directory and the per-channel transports.
//
// # Usage
//
//	storage := notify.NewMemoryStorage()
//
//	fanout, _ := notify.NewFanout(storage, resolver)
//	count, err := fanout.Send(ctx, notify.SendRequest{
//	    Scope:    notify.ScopeHub,
//	    TargetID: "hub-7",
//	    Type:     notify.TypeHubAnnouncement,
//	    Message:  "Town hall at 16:00",
//	    Channels: []notify.Channel{notify.ChannelEmail, notify.ChannelInApp},
//	})
//
//	router := notify.NewRouter()
//	router.Register(emailAdapter, inAppAdapter)
//
//	processor, _ := notify.NewProcessor(storage, router)
//	result, err := processor.Run(ctx, 50)
//
// Processing runs are triggered on demand (an admin action or an
// external scheduler); there is no standing background loop.
package notify
