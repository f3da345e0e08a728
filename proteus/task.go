package proteus

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/qctl/proteus/waveform"
)

// ErrBadTaskTable is generated when a task table is empty or refers to
// tasks that do not exist
var ErrBadTaskTable = errors.New("invalid task table")

// Task is one row of a task table: play Segment Loops times, then go to
// task Next (1-based)
type Task struct {
	Segment int `json:"segment"`
	Loops   int `json:"loops"`
	Next    int `json:"next"`

	// DTrigger emits a digitizer trigger when the task starts
	DTrigger bool `json:"dtrigger"`

	// EnableCPU makes the task wait for a CPU trigger
	EnableCPU bool `json:"enableCpu"`
}

// TaskTable is a sequence of tasks, task i+1 is at index i
type TaskTable []Task

// Validate checks that every task plays a segment at least once and that
// every Next refers to a task in the table
func (tbl TaskTable) Validate() error {
	if len(tbl) == 0 {
		return errors.Wrap(ErrBadTaskTable, "no tasks")
	}
	for i, t := range tbl {
		if t.Segment < 1 {
			return errors.Wrapf(ErrBadTaskTable, "task %d: segment %d", i+1, t.Segment)
		}
		if t.Loops < 1 {
			return errors.Wrapf(ErrBadTaskTable, "task %d: %d loops", i+1, t.Loops)
		}
		if t.Next < 1 || t.Next > len(tbl) {
			return errors.Wrapf(ErrBadTaskTable, "task %d: next task %d of %d", i+1, t.Next, len(tbl))
		}
	}
	return nil
}

// LoopTable plays segments 1..n once each, in order, and wraps around.
// Every task triggers the digitizer and the first waits for the CPU.
func LoopTable(n int) TaskTable {
	tbl := make(TaskTable, n)
	for i := range tbl {
		tbl[i] = Task{Segment: i + 1, Loops: 1, Next: i + 2, DTrigger: true}
	}
	if n > 0 {
		tbl[0].EnableCPU = true
		tbl[n-1].Next = 1
	}
	return tbl
}

// PulseSequence interleaves pulses with delays: pulse[0], delay[0],
// pulse[1], ... pulse[k].  Each delay plays the blank segment delaySeg the
// given number of loops.  The first task triggers the digitizer and the
// table wraps around.
func PulseSequence(delaySeg int, pulses, delays []int) (TaskTable, error) {
	if len(pulses) == 0 || len(delays) != len(pulses)-1 {
		return nil, errors.Wrapf(ErrBadTaskTable, "%d pulses need %d delays, got %d", len(pulses), len(pulses)-1, len(delays))
	}
	tbl := make(TaskTable, 0, 2*len(pulses)-1)
	for i, p := range pulses {
		tbl = append(tbl, Task{Segment: p, Loops: 1})
		if i < len(delays) {
			tbl = append(tbl, Task{Segment: delaySeg, Loops: delays[i]})
		}
	}
	for i := range tbl {
		tbl[i].Next = i + 2
	}
	tbl[0].DTrigger = true
	tbl[len(tbl)-1].Next = 1
	return tbl, tbl.Validate()
}

// DelayLoops converts a delay in seconds into a loop count of the
// MinSegmentLength blank segment, rounding to nearest with at least one loop
func DelayLoops(seconds float64, ctx waveform.SamplingContext) (int, error) {
	if err := ctx.Validate(); err != nil {
		return 0, err
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, errors.Wrapf(waveform.ErrInvalidParameter, "delay must be positive, got %g", seconds)
	}
	loops := int(math.Round(seconds / (waveform.MinSegmentLength * ctx.DeltaT())))
	if loops < 1 {
		loops = 1
	}
	return loops, nil
}

// WriteTaskTable compiles tbl into the task memory of channel ch
func (in *Instrument) WriteTaskTable(ch int, tbl TaskTable) error {
	if err := tbl.Validate(); err != nil {
		return err
	}
	if err := in.checkChannel(ch); err != nil {
		return err
	}
	for _, t := range tbl {
		if err := in.checkSegment(t.Segment); err != nil {
			return err
		}
	}
	cmds := []string{
		fmt.Sprintf(":INST:CHAN %d", ch),
		fmt.Sprintf(":TASK:COMP:LENG %d", len(tbl)),
	}
	for i, t := range tbl {
		cmds = append(cmds, fmt.Sprintf(":TASK:COMP:SEL %d", i+1))
		if t.DTrigger {
			cmds = append(cmds, ":TASK:COMP:DTRigger ON")
		}
		if t.EnableCPU {
			cmds = append(cmds, ":TASK:COMP:ENAB CPU")
		}
		cmds = append(cmds,
			fmt.Sprintf(":TASK:COMP:NEXT1 %d", t.Next),
			":TASK:COMP:TYPE SING",
			fmt.Sprintf(":TASK:COMP:LOOP %d", t.Loops),
			fmt.Sprintf(":TASK:COMP:SEGM %d", t.Segment))
	}
	cmds = append(cmds, ":TASK:COMP:WRIT")

	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.send(cmds...); err != nil {
		return err
	}
	in.logger().Info("task table written", "channel", ch, "tasks", len(tbl))
	return in.checkErrors("task table")
}

// StartTasks switches channel ch to task mode and turns the output on
func (in *Instrument) StartTasks(ch int) error {
	if err := in.checkChannel(ch); err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	err := in.send(
		"FUNC:MODE TASK",
		fmt.Sprintf(":INST:CHAN %d", ch),
		":OUTP ON")
	if err != nil {
		return err
	}
	return in.checkErrors("start tasks")
}
