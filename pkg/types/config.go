package types

// CodecBackend identifies the HEIC-to-JPEG transcoder.
type CodecBackend string

const (
	CodecNative    CodecBackend = "native"
	CodecContainer CodecBackend = "container"
)

// ConversionConfig holds settings for the convert command.
type ConversionConfig struct {
	// Recursive descends into subdirectories (default true).
	Recursive bool `json:"recursive" yaml:"recursive"`

	// Overwrite replaces existing JPEG files.
	Overwrite bool `json:"overwrite" yaml:"overwrite"`

	// RemoveSource deletes HEIC files after they convert.
	RemoveSource bool `json:"remove_source" yaml:"remove_source"`

	// Workers is the number of files converted in parallel (default 1).
	Workers int `json:"workers" yaml:"workers"`

	// IncludeHEIF also treats .heif files as candidates (default true).
	IncludeHEIF bool `json:"include_heif" yaml:"include_heif"`

	// Codec selects the transcoder: native or container.
	Codec CodecBackend `json:"codec" yaml:"codec"`

	// JPEGQuality is the encoder quality, 1-100 (default 92).
	JPEGQuality int `json:"jpeg_quality" yaml:"jpeg_quality"`

	// PreserveExif copies EXIF metadata into the JPEG (default true).
	PreserveExif bool `json:"preserve_exif" yaml:"preserve_exif"`

	// ContainerImage is the ImageMagick image used by the container codec.
	ContainerImage string `json:"container_image" yaml:"container_image"`
}

// HistoryConfig holds settings for the batch history ledger.
type HistoryConfig struct {
	// Enabled records every batch in the ledger.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir holds history.db (default ~/.local/share/heicconv).
	Dir string `json:"dir" yaml:"dir"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default warn).
	Level string `json:"level" yaml:"level"`
}

// Config groups all heicconv settings.
type Config struct {
	Conversion ConversionConfig `json:"conversion" yaml:"conversion"`
	History    HistoryConfig    `json:"history" yaml:"history"`
	Log        LogConfig        `json:"log" yaml:"log"`
}
