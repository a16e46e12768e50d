package narmax

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/gosysid/go-narmax/regressor"
	"github.com/klauspost/compress/gzip"
)

var (
	ErrBadModelMagic    = errors.New("not a narmax model file")
	ErrChecksumMismatch = errors.New("model payload checksum mismatch")
)

// modelMagic identifies the serialized model envelope format.
var modelMagic = [8]byte{'G', 'N', 'A', 'R', 'M', 'A', 'X', '1'}

// TermWeight is one selected regressor with its estimated coefficient and
// the error reduction ratio it captured when accepted.
type TermWeight struct {
	Code        regressor.Code `json:"code"`
	Label       string         `json:"label"`
	Coefficient float64        `json:"coefficient"`
	ERR         float64        `json:"err"`

	// StandardError is populated when the fit computed coefficient
	// confidence; zero otherwise.
	StandardError float64 `json:"standard_error,omitempty"`
}

// Model is the serializable result of an identification run: the selected
// regressor codes with coefficients, the basis, the training configuration,
// and the selection trace. It is sufficient to reconstruct predictions
// without re-running selection.
type Model struct {
	Options     *Options          `json:"options"`
	Basis       string            `json:"basis"`
	BasisParams map[string]string `json:"basis_params,omitempty"`
	SpaceConfig regressor.Config  `json:"space_config"`

	// Terms are ordered by selection, most significant first.
	Terms []TermWeight `json:"terms"`

	SelectionState    string    `json:"selection_state"`
	ResidualNorms     []float64 `json:"residual_norms"`
	InfoValues        []float64 `json:"info_values,omitempty"`
	ExplainedVariance float64   `json:"explained_variance"`
	ResidualVariance  float64   `json:"residual_variance"`
}

// TablePrint writes a human readable summary of the selected terms.
func (m *Model) TablePrint(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Basis: %s  Terms: %d  State: %s  Explained: %.4f\n",
		m.Basis, len(m.Terms), m.SelectionState, m.ExplainedVariance); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "#\tRegressor\tCoefficient\tERR\tStdErr"); err != nil {
		return err
	}
	for i, term := range m.Terms {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t% .6g\t%.6g\t%.6g\n",
			i+1, term.Label, term.Coefficient, term.ERR, term.StandardError); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Save writes the model as a checksummed gzip JSON envelope: an 8-byte
// magic, the xxhash of the compressed payload, then the payload.
func (m *Model) Save(w io.Writer) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	if _, err := w.Write(modelMagic[:]); err != nil {
		return err
	}
	var sum [8]byte
	binary.LittleEndian.PutUint64(sum[:], xxhash.Sum64(buf.Bytes()))
	if _, err := w.Write(sum[:]); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// LoadModel reads a model envelope written by Save, verifying the checksum
// before decoding.
func LoadModel(r io.Reader) (*Model, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != modelMagic {
		return nil, ErrBadModelMagic
	}

	var sum [8]byte
	if _, err := io.ReadFull(r, sum[:]); err != nil {
		return nil, err
	}

	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if xxhash.Sum64(compressed) != binary.LittleEndian.Uint64(sum[:]) {
		return nil, ErrChecksumMismatch
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	payload, err := io.ReadAll(gz)
	if err != nil {
		return nil, err
	}

	model := new(Model)
	if err := json.Unmarshal(payload, model); err != nil {
		return nil, err
	}
	return model, nil
}

// NewFromModel creates an identifier primed with a previously saved model.
// The identifier reports as trained and can hand the model to downstream
// simulation tooling without re-running selection.
func NewFromModel(model *Model) (*Identifier, error) {
	opt, err := model.Options.Validate()
	if err != nil {
		return nil, err
	}
	return &Identifier{
		opt:     opt,
		model:   model,
		trained: true,
	}, nil
}
