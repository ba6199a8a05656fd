package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"
)

const (
	ModelTypeDecisionTree = "decision_tree"
	ModelTypeRandomForest = "random_forest"
)

var (
	ErrUnsupportedModel = errors.New("unsupported model type")
	// ErrContractMismatch means the artifact was trained on a different
	// feature layout or sex encoding than Encode produces.
	ErrContractMismatch = errors.New("artifact does not match feature encoding")
)

// Artifact is the serialized form of a trained tree model.
type Artifact struct {
	ModelType    string         `json:"model_type"`
	FeatureNames []string       `json:"feature_names"`
	SexEncoding  map[string]int `json:"sex_encoding"`
	Trees        [][]TreeNode   `json:"trees"`
}

type ModelInfo struct {
	Path         string    `json:"path"`
	SHA256       string    `json:"sha256"`
	ModelType    string    `json:"model_type"`
	Trees        int       `json:"trees"`
	FeatureNames []string  `json:"feature_names"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// LoadModel reads and validates the artifact at path.
func LoadModel(path string) (Classifier, ModelInfo, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, ModelInfo{}, fmt.Errorf("read model artifact: %w", err)
	}
	classifier, artifact, err := ParseArtifact(payload)
	if err != nil {
		return nil, ModelInfo{}, fmt.Errorf("load model artifact %s: %w", path, err)
	}
	sum := sha256.Sum256(payload)
	info := ModelInfo{
		Path:         path,
		SHA256:       hex.EncodeToString(sum[:]),
		ModelType:    artifact.ModelType,
		Trees:        len(artifact.Trees),
		FeatureNames: artifact.FeatureNames,
		LoadedAt:     time.Now().UTC(),
	}
	return classifier, info, nil
}

func ParseArtifact(payload []byte) (Classifier, Artifact, error) {
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, Artifact{}, fmt.Errorf("decode artifact: %w", err)
	}
	if err := CheckContract(artifact); err != nil {
		return nil, Artifact{}, err
	}

	trees := make([]*DecisionTree, 0, len(artifact.Trees))
	for i, nodes := range artifact.Trees {
		tree, err := NewDecisionTree(nodes)
		if err != nil {
			return nil, Artifact{}, fmt.Errorf("tree %d: %w", i, err)
		}
		trees = append(trees, tree)
	}

	switch artifact.ModelType {
	case ModelTypeDecisionTree:
		if len(trees) != 1 {
			return nil, Artifact{}, fmt.Errorf("decision tree artifact has %d trees", len(trees))
		}
		return trees[0], artifact, nil
	case ModelTypeRandomForest:
		forest, err := NewRandomForest(trees)
		if err != nil {
			return nil, Artifact{}, err
		}
		return forest, artifact, nil
	default:
		return nil, Artifact{}, fmt.Errorf("%w: %q", ErrUnsupportedModel, artifact.ModelType)
	}
}

// CheckContract compares the feature layout declared by the artifact with the
// one Encode produces.
func CheckContract(artifact Artifact) error {
	if !slices.Equal(artifact.FeatureNames, FeatureNames()) {
		return fmt.Errorf("%w: feature names %v, want %v", ErrContractMismatch, artifact.FeatureNames, FeatureNames())
	}
	want := SexEncoding()
	if len(artifact.SexEncoding) != len(want) {
		return fmt.Errorf("%w: sex encoding %v, want %v", ErrContractMismatch, artifact.SexEncoding, want)
	}
	for category, code := range want {
		if got, ok := artifact.SexEncoding[category]; !ok || got != code {
			return fmt.Errorf("%w: sex encoding %v, want %v", ErrContractMismatch, artifact.SexEncoding, want)
		}
	}
	return nil
}
