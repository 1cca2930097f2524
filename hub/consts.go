package hub

import (
	"time"

	"github.com/blocknetlabs/nodeshub/build"
)

const logFile = "nodeshub.log"

var (
	// dialTimeout bounds how long Connect waits for the hub's outbound
	// connection to a receiver node before giving up, grounded on
	// modules/gateway/consts.go's dialTimeout.
	dialTimeout = build.Select(build.Var{
		Standard: 10 * time.Second,
		Dev:      5 * time.Second,
		Testing:  2 * time.Second,
	}).(time.Duration)

	// pendingAcquireTimeout bounds how long Connect waits to acquire the
	// PendingConnect slot before giving up, so a caller can't hang forever
	// behind a wedged concurrent Connect.
	pendingAcquireTimeout = build.Select(build.Var{
		Standard: 30 * time.Second,
		Dev:      15 * time.Second,
		Testing:  5 * time.Second,
	}).(time.Duration)

	// relayBufSize is the read buffer size used by each edge's pump
	// goroutines.
	relayBufSize = build.Select(build.Var{
		Standard: 64 * 1024,
		Dev:      64 * 1024,
		Testing:  4 * 1024,
	}).(int)
)
