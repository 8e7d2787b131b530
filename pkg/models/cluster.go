package models

// ClusterMember is one class in a semantic cluster. It is the element
// type of the persisted cluster list.
type ClusterMember struct {
	ClassName string   `json:"class_name"`
	Bases     []string `json:"bases"`
	File      string   `json:"file"`
	Source    string   `json:"source"`
	StartLine uint32   `json:"start_line,omitempty"`
}

// Ref returns the identity of the member.
func (m ClusterMember) Ref() ClassRef {
	return ClassRef{File: m.File, Name: m.ClassName}
}

// Cluster is a non-empty ordered group of classes. The first member is
// the seed the others were compared against.
type Cluster []ClusterMember

// Seed returns the member that opened the cluster.
func (c Cluster) Seed() ClusterMember {
	return c[0]
}

// ClusterList is the ordered sequence of clusters.
type ClusterList []Cluster

// Members returns the total number of clustered classes.
func (l ClusterList) Members() int {
	n := 0
	for _, c := range l {
		n += len(c)
	}
	return n
}
