package proteus

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/pkg/errors"

	"github.com/qctl/proteus/generichttp"
	"github.com/qctl/proteus/waveform"
)

// PulseRequest names a pulse family and carries its parameters as raw JSON
type PulseRequest struct {
	Family string          `json:"family"`
	Params json.RawMessage `json:"params"`
}

// DownloadRequest synthesizes a pulse and stores one of its arrays in a segment
type DownloadRequest struct {
	PulseRequest
	Channel int `json:"channel"`
	Segment int `json:"segment"`

	// Component is one of inphase (default), quadrature or envelope
	Component string `json:"component"`
}

// DownloadResponse summarizes a download
type DownloadResponse struct {
	Length      int                   `json:"length"`
	Aux         map[string]float64    `json:"aux"`
	Diagnostics []waveform.Diagnostic `json:"diagnostics,omitempty"`
}

// SequenceRequest describes a pulse/delay sequence, see PulseSequence
type SequenceRequest struct {
	DelaySegment int   `json:"delaySegment"`
	Pulses       []int `json:"pulses"`
	Delays       []int `json:"delays"`
}

// TaskTableRequest writes either an explicit table or a pulse sequence
type TaskTableRequest struct {
	Channel  int              `json:"channel"`
	Tasks    TaskTable        `json:"tasks,omitempty"`
	Sequence *SequenceRequest `json:"sequence,omitempty"`
}

// FramesRequest is the body of /digitizer/frames
type FramesRequest struct {
	Number int `json:"number"`
	Length int `json:"length"`
}

// HTTPWrapper exposes an Instrument and a Synthesizer over HTTP
type HTTPWrapper struct {
	Inst  *Instrument
	Synth waveform.Synthesizer

	// RouteTable maps URLs to functions
	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper around an instrument
func NewHTTPWrapper(inst *Instrument, syn waveform.Synthesizer) HTTPWrapper {
	h := HTTPWrapper{Inst: inst, Synth: syn}
	h.RouteTable = generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodGet, Path: "/idn"}:                inst.httpIDN(),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/info"}:               inst.httpInfo,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/errors"}:             generichttp.GetString(inst.Errors),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/sampling"}:           h.sampling,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/sampling/rate"}:      generichttp.GetFloat(func() (float64, error) { return syn.Ctx.SampleRate, nil }),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/sampling/interp"}:    generichttp.GetInt(func() (int, error) { return syn.Ctx.Interpolation, nil }),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/pulse/{family}"}:    h.pulse,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/pulses"}:            h.pulses,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/download"}:          h.download,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/channel/init"}:      generichttp.SetInt(func(ch int) error { return inst.InitChannel(ch, syn.Ctx) }),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/task-table"}:        h.taskTable,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/tasks/start"}:       generichttp.SetInt(inst.StartTasks),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/digitizer/setup"}:   h.setupDigitizer,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/digitizer/frames"}:  h.frames,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/digitizer/capture"}: h.capture,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/digitizer/iq"}:       h.iq,
	}
	return h
}

// RT satisfies the generichttp.HTTPer interface
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

// status maps an error to an HTTP status: caller mistakes are 400
func status(err error) int {
	c := errors.Cause(err)
	switch c {
	case waveform.ErrInvalidParameter, ErrBadChannel, ErrBadSegment, ErrSegmentLength, ErrBadTaskTable:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (in *Instrument) httpIDN() http.HandlerFunc {
	return generichttp.GetString(in.IDN)
}

func (in *Instrument) httpInfo(w http.ResponseWriter, r *http.Request) {
	generichttp.ReplyJSON(w, in.Info)
}

func (h HTTPWrapper) sampling(w http.ResponseWriter, r *http.Request) {
	generichttp.ReplyJSON(w, h.Synth.Ctx)
}

// decodeParams returns a pointer to the parameter struct of the named
// family, populated from params
func decodeParams(family string, params json.RawMessage) (interface{}, error) {
	f, err := waveform.ValidateFamily(family)
	if err != nil {
		return nil, err
	}
	p, err := waveform.NewParams(f)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		if err = json.Unmarshal(params, p); err != nil {
			return nil, errors.Wrapf(waveform.ErrInvalidParameter, "decode %s parameters: %v", family, err)
		}
	}
	return p, nil
}

// synthesize decodes params for the named family and synthesizes it
func (h HTTPWrapper) synthesize(family string, params json.RawMessage) (waveform.PulseEnvelope, error) {
	p, err := decodeParams(family, params)
	if err != nil {
		return waveform.PulseEnvelope{}, err
	}
	return h.Synth.Synthesize(p)
}

func (h HTTPWrapper) pulse(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	env, err := h.synthesize(chi.URLParam(r, "family"), raw)
	if err != nil {
		http.Error(w, err.Error(), status(err))
		return
	}
	generichttp.ReplyJSON(w, env)
}

// pulses synthesizes a list of pulses concurrently, replying in order
func (h HTTPWrapper) pulses(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var reqs []PulseRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	params := make([]interface{}, len(reqs))
	for i, req := range reqs {
		p, err := decodeParams(req.Family, req.Params)
		if err != nil {
			http.Error(w, errors.Wrapf(err, "pulse %d", i).Error(), http.StatusBadRequest)
			return
		}
		params[i] = p
	}
	envs, err := h.Synth.Batch(r.Context(), params)
	if err != nil {
		http.Error(w, err.Error(), status(err))
		return
	}
	generichttp.ReplyJSON(w, envs)
}

func (h HTTPWrapper) download(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req := DownloadRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	env, err := h.synthesize(req.Family, req.Params)
	if err != nil {
		http.Error(w, err.Error(), status(err))
		return
	}
	var samples []float64
	switch req.Component {
	case "", "inphase":
		samples = env.InPhase
	case "quadrature":
		samples = env.Quadrature
	case "envelope":
		samples = env.Envelope
	default:
		http.Error(w, "component must be a member of {inphase, quadrature, envelope}", http.StatusBadRequest)
		return
	}
	if err = h.Inst.Download(req.Channel, req.Segment, samples); err != nil {
		http.Error(w, err.Error(), status(err))
		return
	}
	generichttp.ReplyJSON(w, DownloadResponse{Length: env.Length, Aux: env.Aux, Diagnostics: env.Diagnostics})
}

func (h HTTPWrapper) taskTable(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req := TaskTableRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tbl := req.Tasks
	if req.Sequence != nil {
		var err error
		tbl, err = PulseSequence(req.Sequence.DelaySegment, req.Sequence.Pulses, req.Sequence.Delays)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := h.Inst.WriteTaskTable(req.Channel, tbl); err != nil {
		http.Error(w, err.Error(), status(err))
		return
	}
	generichttp.ReplyJSON(w, tbl)
}

func (h HTTPWrapper) setupDigitizer(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	c := DigitizerConfig{}
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Inst.SetupDigitizer(c); err != nil {
		http.Error(w, err.Error(), status(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) frames(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	f := FramesRequest{}
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Inst.DefineFrames(f.Number, f.Length); err != nil {
		http.Error(w, err.Error(), status(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) capture(w http.ResponseWriter, r *http.Request) {
	if err := h.Inst.Capture(r.Context()); err != nil {
		http.Error(w, err.Error(), status(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) iq(w http.ResponseWriter, r *http.Request) {
	ch := 1
	if s := r.URL.Query().Get("channel"); s != "" {
		var err error
		if ch, err = strconv.Atoi(s); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	iq, err := h.Inst.ReadIQ(ch)
	if err != nil {
		http.Error(w, err.Error(), status(err))
		return
	}
	generichttp.ReplyJSON(w, iq)
}
