package blescan

// Observer receives the results of a scan.
//
// Callbacks run on whatever goroutine the radio layer delivers on, which is
// never the host's application thread; hosts must marshal results back to
// their own thread. Callbacks for one scan may run concurrently when the OS
// delivers from several threads, and a just-stopped scan may still deliver a
// late result before its session releases the observer.
type Observer interface {
	OnResult(a Advertisement)
	OnFailure(k ErrorKind)
}

// ObserverFuncs adapts plain functions to an Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Result  func(a Advertisement)
	Failure func(k ErrorKind)
}

// OnResult ...
func (o ObserverFuncs) OnResult(a Advertisement) {
	if o.Result != nil {
		o.Result(a)
	}
}

// OnFailure ...
func (o ObserverFuncs) OnFailure(k ErrorKind) {
	if o.Failure != nil {
		o.Failure(k)
	}
}

// ResultChan returns an Observer that forwards results and failures to
// buffered channels. Sends never block the radio goroutine: when a channel is
// full the value is dropped and counted by dropped.
func ResultChan(size int, dropped func()) (Observer, <-chan Advertisement, <-chan ErrorKind) {
	results := make(chan Advertisement, size)
	failures := make(chan ErrorKind, size)
	o := ObserverFuncs{
		Result: func(a Advertisement) {
			select {
			case results <- a:
			default:
				if dropped != nil {
					dropped()
				}
			}
		},
		Failure: func(k ErrorKind) {
			select {
			case failures <- k:
			default:
				if dropped != nil {
					dropped()
				}
			}
		},
	}
	return o, results, failures
}
