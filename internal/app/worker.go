package app

import (
	"github.com/pkg/errors"

	"nickandperla.net/exaplot/internal/datafile"
	"nickandperla.net/exaplot/internal/present"
)

type opKind int

const (
	opOpen opKind = iota
	opWrite
	opWriteCM
	opClose
)

// dfOp is one request to the datafile goroutine. Open and close carry a
// reply channel; writes are fire-and-forget.
type dfOp struct {
	kind  opKind
	path  string
	plots int
	plot  int
	x, y  []float64
	cells []datafile.Cell
	reply chan dfReply
}

type dfReply struct {
	err      error
	writeErr error // first failed write of the run
	summary  datafile.Summary
}

// datafileLoop owns the sink.
func (a *App) datafileLoop() {
	defer a.wg.Done()
	var writeErr error
	for {
		select {
		case op := <-a.dfc:
			switch op.kind {
			case opOpen:
				writeErr = nil
				op.reply <- dfReply{err: a.sink.Open(op.path, op.plots)}
			case opClose:
				err := a.sink.Close()
				op.reply <- dfReply{err: err, writeErr: writeErr, summary: a.sink.Summary()}
			case opWrite, opWriteCM:
				if writeErr != nil {
					continue
				}
				var err error
				if op.kind == opWrite {
					err = a.sink.Write2D(op.plot, op.x, op.y)
				} else {
					err = a.sink.WriteCM(op.plot, op.cells)
				}
				if err != nil {
					writeErr = err
					a.sinkFailed(err)
				}
			}
		case <-a.quit:
			return
		}
	}
}

// sinkFailed latches the application error so the running script's next
// host call fails.
func (a *App) sinkFailed(err error) {
	a.logger.Error("datafile write failed", "err", err)
	a.core.SetAppError()
	a.post(func() {
		a.presenter.Report(present.Report{Title: "Datafile error", Message: err.Error()})
	})
}

// persist queues a write when the current run records data.
func (a *App) persist(op dfOp) {
	if !a.recording.Load() {
		return
	}
	select {
	case a.dfc <- op:
	case <-a.quit:
	}
}

// request sends op to the datafile goroutine and waits for the reply.
func (a *App) request(op dfOp) dfReply {
	op.reply = make(chan dfReply, 1)
	select {
	case a.dfc <- op:
	case <-a.quit:
		return dfReply{err: errClosed}
	}
	select {
	case r := <-op.reply:
		return r
	case <-a.quit:
		return dfReply{err: errors.Wrap(errClosed, "datafile")}
	}
}
