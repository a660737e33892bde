package config

import "errors"

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 5000
	DefaultEnvironment = "dev"
	DefaultPublicDir   = "./web/static"
	DefaultViewDir     = "./web/view"

	DefaultModelURL      = "https://drive.google.com/uc?export=download&id=1skUNYYIzJuR6QOhImtbXpgWlnj2Ip9Py"
	DefaultModelFileName = "stage-2-rn50-5class.onnx"
	DefaultModelDir      = "."
	DefaultImageSize     = 224
	DefaultInputName     = "input"
	DefaultOutputName    = "output"

	DefaultTopN = 9
)

// Label order must match the order the model was trained with.
var DefaultLabels = []string{
	"female_breast", "female_genital", "kiss",
	"male_genital", "neutral", "nude",
	"oral", "risque", "sex",
}

// ImageNet statistics, used by the exported resnet50.
var (
	DefaultMean = []float64{0.485, 0.456, 0.406}
	DefaultStd  = []float64{0.229, 0.224, 0.225}
)

var (
	ErrConfigNotLoaded = errors.New("config not loaded")
	ErrNoLabels        = errors.New("model.labels must not be empty")
	ErrBadChannelStats = errors.New("model.mean and model.std must have 3 values each")
)
