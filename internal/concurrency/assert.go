package concurrency

import "github.com/engindearing-projects/omniTAK-sub001/internal/pool"

var _ pool.Limiter = (*Limiter)(nil)
