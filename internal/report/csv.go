package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/panbanda/kindred/pkg/models"
)

// CSVHeader is the first row of the cluster CSV.
var CSVHeader = []string{"Cluster Number", "Class Name", "File Path"}

// WriteClustersCSV writes one row per cluster member, numbering clusters
// from 1.
func WriteClustersCSV(w io.Writer, clusters models.ClusterList) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for i, c := range clusters {
		num := strconv.Itoa(i + 1)
		for _, m := range c {
			if err := cw.Write([]string{num, m.ClassName, m.File}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
