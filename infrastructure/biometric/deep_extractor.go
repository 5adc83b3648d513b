package biometric

import (
	"fmt"
	"image"
	"os"
	"sync"

	"facemark.io/infrastructure/biometric/types"
	"facemark.io/infrastructure/logger"
	"gocv.io/x/gocv"
)

// DeepExtractor runs an ONNX face-embedding model through the OpenCV DNN
// module. The output dimensionality is read from the model's first forward
// pass, not hard-coded.
type DeepExtractor struct {
	net          gocv.Net
	inputSize    image.Point
	outputDim    int
	modelsLoaded bool
	mutex        sync.Mutex
}

// DeepModelConfig holds configuration for the embedding model.
type DeepModelConfig struct {
	ModelPath string
	InputSize image.Point
	Backend   gocv.NetBackendType
	Target    gocv.NetTargetType
}

// GetDefaultDeepModelConfig probes the common artifact locations. The model
// is provisioned out of band; it is never downloaded in-process.
func GetDefaultDeepModelConfig() DeepModelConfig {
	modelPaths := []string{
		os.Getenv("FACE_MODEL_PATH"),
		"./models/facenet/facenet.onnx",
		"/usr/local/share/facemark/facenet.onnx",
	}

	modelPath := ""
	for _, path := range modelPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			modelPath = path
			break
		}
	}
	if modelPath == "" {
		modelPath = "./models/facenet/facenet.onnx"
	}

	return DeepModelConfig{
		ModelPath: modelPath,
		InputSize: image.Pt(160, 160),
		Backend:   gocv.NetBackendDefault,
		Target:    gocv.NetTargetCPU,
	}
}

// IsDeepModelAvailable checks whether a model artifact exists on disk.
func IsDeepModelAvailable() bool {
	config := GetDefaultDeepModelConfig()
	_, err := os.Stat(config.ModelPath)
	return err == nil
}

// NewDeepExtractor loads the model. A load failure leaves the extractor in a
// not-ready state rather than failing construction; the caller decides
// whether to fall back.
func NewDeepExtractor(config DeepModelConfig) *DeepExtractor {
	extractor := &DeepExtractor{
		inputSize: config.InputSize,
	}

	if err := extractor.loadModel(config); err != nil {
		logger.Error("failed to load embedding model", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return extractor
	}

	extractor.modelsLoaded = true
	logger.Info("deep embedding extractor initialised", logger.LoggerOptions{
		Key: "config",
		Data: map[string]interface{}{
			"model_path": config.ModelPath,
			"input_size": fmt.Sprintf("%dx%d", config.InputSize.X, config.InputSize.Y),
		},
	})
	return extractor
}

func (de *DeepExtractor) loadModel(config DeepModelConfig) error {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", config.ModelPath)
	}

	de.net = gocv.ReadNet(config.ModelPath, "")
	if de.net.Empty() {
		return fmt.Errorf("failed to load embedding model from %s", config.ModelPath)
	}

	de.net.SetPreferableBackend(config.Backend)
	de.net.SetPreferableTarget(config.Target)
	return nil
}

func (de *DeepExtractor) Ready() bool {
	return de.modelsLoaded
}

func (de *DeepExtractor) Strategy() types.Strategy {
	return types.StrategyDeepModel
}

// OutputDim reports the model's declared embedding length. Zero until the
// first successful extraction.
func (de *DeepExtractor) OutputDim() int {
	de.mutex.Lock()
	defer de.mutex.Unlock()
	return de.outputDim
}

// Extract preprocesses the cropped face to the model's square input, maps
// channels to [-1, 1], runs the forward pass and L2-normalizes the raw
// vector. The DNN session is not thread-safe, so extraction is serialized.
func (de *DeepExtractor) Extract(faceImage image.Image) (*types.Embedding, error) {
	de.mutex.Lock()
	defer de.mutex.Unlock()

	if !de.modelsLoaded {
		return nil, types.ErrModelNotLoaded
	}
	if faceImage == nil {
		return nil, fmt.Errorf("%w: nil image", types.ErrExtraction)
	}

	mat, err := gocv.ImageToMatRGB(faceImage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExtraction, err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("%w: empty image buffer", types.ErrExtraction)
	}

	// Per-channel normalization to roughly [-1, 1].
	blob := gocv.BlobFromImage(
		mat,
		1.0/127.5,
		de.inputSize,
		gocv.NewScalar(127.5, 127.5, 127.5, 0),
		true,
		false,
	)
	defer blob.Close()

	de.net.SetInput(blob, "")
	output := de.net.Forward("")
	defer output.Close()

	dim := output.Cols()
	if dim <= 0 {
		dim = int(output.Total())
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: model produced empty output", types.ErrExtraction)
	}
	if de.outputDim == 0 {
		de.outputDim = dim
		logger.Info("embedding model output dimension detected", logger.LoggerOptions{
			Key:  "output_dim",
			Data: dim,
		})
	}

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		vector[i] = output.GetFloatAt(0, i)
	}

	return &types.Embedding{
		Vector:   normalizeVector(vector),
		Strategy: types.StrategyDeepModel,
	}, nil
}

// Close releases the DNN session.
func (de *DeepExtractor) Close() error {
	de.mutex.Lock()
	defer de.mutex.Unlock()

	if de.modelsLoaded && !de.net.Empty() {
		if err := de.net.Close(); err != nil {
			return fmt.Errorf("failed to close embedding model: %v", err)
		}
	}
	de.modelsLoaded = false
	return nil
}
