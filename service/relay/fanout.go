package relay

// Sink is one local client connection able to take a frame. Enqueue
// must not block; it reports false when the client's buffer is full.
type Sink interface {
	ID() string
	Enqueue(payload []byte) bool
}

type fanoutJob struct {
	sinks   []Sink
	payload []byte
}

type Fanout struct {
	jobs chan fanoutJob
}

func NewFanout(workers, queue int) *Fanout {
	f := &Fanout{jobs: make(chan fanoutJob, queue)}
	for i := 0; i < workers; i++ {
		go func() {
			for job := range f.jobs {
				for _, s := range job.sinks {
					// a full client buffer drops the frame for that sink
					_ = s.Enqueue(job.payload)
				}
			}
		}()
	}
	return f
}

func (f *Fanout) Broadcast(sinks []Sink, payload []byte) {
	if len(sinks) == 0 || len(payload) == 0 {
		return
	}
	f.jobs <- fanoutJob{sinks: sinks, payload: payload}
}

// Close stops the workers once queued jobs drain. No Broadcast may
// follow.
func (f *Fanout) Close() {
	close(f.jobs)
}
