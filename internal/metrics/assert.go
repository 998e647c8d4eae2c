package metrics

import (
	"github.com/engindearing-projects/omniTAK-sub001/internal/distributor"
	"github.com/engindearing-projects/omniTAK-sub001/internal/health"
	"github.com/engindearing-projects/omniTAK-sub001/internal/pool"
)

var _ pool.Sink = (*PoolMetrics)(nil)
var _ distributor.Sink = (*DistributorMetrics)(nil)
var _ health.Sink = (*HealthMetrics)(nil)
