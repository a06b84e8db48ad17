// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// cborMode sorts map keys so equal ensembles encode to equal bytes
var cborMode, _ = cbor.CoreDetEncOptions().EncMode()

// cloneMode keeps float32 values at full width for exact copies
var cloneMode, _ = cbor.EncOptions{}.EncMode()

// MarshalEnsembleCBOR encodes an ensemble as a CBOR map keyed by dataset name.
// Absent datasets are omitted.
func MarshalEnsembleCBOR(ens *Ensemble) ([]byte, error) {
	if ens == nil {
		return nil, fmt.Errorf("nil ensemble")
	}
	data, err := cborMode.Marshal(ens)
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR: %w", err)
	}
	return data, nil
}

// UnmarshalEnsembleCBOR decodes an ensemble written by MarshalEnsembleCBOR
func UnmarshalEnsembleCBOR(data []byte) (*Ensemble, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty CBOR payload")
	}
	ens := &Ensemble{}
	if err := cbor.Unmarshal(data, ens); err != nil {
		return nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	return ens, nil
}

// Exporter writes ensembles to w as a CBOR sequence or as JSON lines
type Exporter struct {
	jsonEnc *json.Encoder
	cborEnc *cbor.Encoder
}

// NewJSONExporter writes one JSON object per line
func NewJSONExporter(w io.Writer) *Exporter {
	return &Exporter{jsonEnc: json.NewEncoder(w)}
}

// NewCBORExporter writes a CBOR sequence, one data item per ensemble
func NewCBORExporter(w io.Writer) *Exporter {
	return &Exporter{cborEnc: cborMode.NewEncoder(w)}
}

// Export writes one ensemble.
//
// JSON has no NaN or infinity, so the JSON exporter writes those samples as null.
func (e *Exporter) Export(ens *Ensemble) error {
	if e.cborEnc != nil {
		return e.cborEnc.Encode(ens)
	}

	err := e.jsonEnc.Encode(ens)
	var unsupported *json.UnsupportedValueError
	if !errors.As(err, &unsupported) {
		return err
	}
	return e.jsonEnc.Encode(finiteJSON(reflect.ValueOf(ens)))
}

// finiteJSON rebuilds v as plain maps and slices following its json tags,
// with non-finite floats replaced by nil
func finiteJSON(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return finiteJSON(v.Elem())

	case reflect.Struct:
		t := v.Type()
		out := make(map[string]any, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = f.Name
			}
			if strings.Contains(opts, "omitempty") && v.Field(i).IsZero() {
				continue
			}
			out[name] = finiteJSON(v.Field(i))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = finiteJSON(v.Index(i))
		}
		return out

	case reflect.Float32, reflect.Float64:
		if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return v.Interface()

	default:
		return v.Interface()
	}
}

// ReadCBORSequence decodes every ensemble in a CBOR sequence and calls fn for each
func ReadCBORSequence(r io.Reader, fn func(*Ensemble) error) error {
	dec := cbor.NewDecoder(r)
	for {
		ens := &Ensemble{}
		if err := dec.Decode(ens); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to decode CBOR: %w", err)
		}
		if err := fn(ens); err != nil {
			return err
		}
	}
}
