package report

import "time"

// Metadata describes the run that produced a report.
type Metadata struct {
	Repository          string    `json:"repository"`
	GeneratedAt         time.Time `json:"generated_at"`
	Version             string    `json:"version"`
	Paths               []string  `json:"paths"`
	SimilarityThreshold float64   `json:"similarity_threshold,omitempty"`
	ClusterThreshold    float64   `json:"cluster_threshold,omitempty"`
	EmbeddingModel      string    `json:"embedding_model,omitempty"`
}

// FileCount is the number of classes defined in one file.
type FileCount struct {
	File    string `json:"file"`
	Classes int    `json:"classes"`
}

// ParentCount is the number of classes declaring one base name.
type ParentCount struct {
	Parent   string `json:"parent"`
	Children int    `json:"children"`
}

// Stats summarizes a class map.
type Stats struct {
	TotalFiles       int           `json:"total_files"`
	FilesWithClasses int           `json:"files_with_classes"`
	TotalClasses     int           `json:"total_classes"`
	TotalMethods     int           `json:"total_methods"`
	TotalAttributes  int           `json:"total_attributes"`
	TotalProperties  int           `json:"total_properties"`
	AvgMethods       float64       `json:"avg_methods_per_class"`
	AvgAttributes    float64       `json:"avg_attributes_per_class"`
	AvgProperties    float64       `json:"avg_properties_per_class"`
	P90Methods       float64       `json:"p90_methods_per_class"`
	RootClasses      int           `json:"root_classes"`
	LeafClasses      int           `json:"leaf_classes"`
	MaxDepth         int           `json:"max_depth"`
	TopFiles         []FileCount   `json:"top_files"`
	TopParents       []ParentCount `json:"top_parents"`
}

// ClusterSummary is a persisted language-model summary of one cluster.
type ClusterSummary struct {
	Index int    `json:"index"`
	Size  int    `json:"size"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}
