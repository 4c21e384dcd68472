package advice

import (
	"encoding/json"
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

// MapEntryJSON is one advice map entry
type MapEntryJSON struct {
	Key    string   `json:"key"`
	Values []uint64 `json:"values"`
}

// InputsJSON is the document form of Inputs. Trees are given by their
// leaves as word hex strings.
type InputsJSON struct {
	Stack []uint64       `json:"stack,omitempty"`
	Map   []MapEntryJSON `json:"map,omitempty"`
	Trees [][]string     `json:"trees,omitempty"`
}

// DecodeInputsJSON parses an advice document
func DecodeInputsJSON(data []byte) (Inputs, error) {
	var doc InputsJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return Inputs{}, fmt.Errorf("failed to parse advice inputs: %w", err)
	}

	var (
		in  Inputs
		err error
	)
	if in.Stack, err = toElements(doc.Stack); err != nil {
		return Inputs{}, fmt.Errorf("advice stack: %w", err)
	}

	in.Map = make(map[core.Word][]field.Element, len(doc.Map))
	for i, e := range doc.Map {
		key, err := core.ParseHexWord(e.Key)
		if err != nil {
			return Inputs{}, fmt.Errorf("advice map entry %d: %w", i, err)
		}
		if in.Map[key], err = toElements(e.Values); err != nil {
			return Inputs{}, fmt.Errorf("advice map entry %d: %w", i, err)
		}
	}

	for i, hexLeaves := range doc.Trees {
		leaves := make([]core.Word, len(hexLeaves))
		for j, s := range hexLeaves {
			if leaves[j], err = core.ParseHexWord(s); err != nil {
				return Inputs{}, fmt.Errorf("tree %d leaf %d: %w", i, j, err)
			}
		}
		tree, err := core.NewMerkleTree(leaves)
		if err != nil {
			return Inputs{}, fmt.Errorf("tree %d: %w", i, err)
		}
		in.Trees = append(in.Trees, tree)
	}
	return in, nil
}

func toElements(values []uint64) ([]field.Element, error) {
	out := make([]field.Element, len(values))
	for i, v := range values {
		if v >= field.P {
			return nil, fmt.Errorf("value %d at %d is not a canonical field element", v, i)
		}
		out[i] = field.New(v)
	}
	return out, nil
}
