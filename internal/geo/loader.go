package geo

import (
	"archive/zip"
	"context"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BoundarySelector picks which feature of a multi-feature file becomes the
// boundary. An empty Name selects the largest polygon in the file.
type BoundarySelector struct {
	Field string // attribute/property key, e.g. "NAME" or "boro_name"
	Name  string // value to match, case-insensitive
}

// LoadBoundaryFile reads a boundary ring from a GeoJSON (.geojson, .json) or
// ESRI shapefile (.shp). Only the outer ring of the selected polygon is used.
func LoadBoundaryFile(path string, sel BoundarySelector) (*Boundary, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return loadGeoJSON(path, sel)
	case ".shp":
		return loadShapefile(path, sel)
	default:
		return nil, eris.Wrapf(ErrConfiguration, "geo: unsupported boundary file %s", path)
	}
}

// FetchBoundary downloads a zipped shapefile and loads its boundary.
func FetchBoundary(ctx context.Context, httpClient *http.Client, url, tempDir string, sel BoundarySelector) (*Boundary, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	log := zap.L().With(zap.String("component", "geo.loader"))

	zipPath := filepath.Join(tempDir, "boundary.zip")
	log.Info("downloading boundary shapefile", zap.String("url", url))
	if err := downloadFile(ctx, httpClient, url, zipPath); err != nil {
		return nil, eris.Wrap(err, "geo: download boundary")
	}

	extractDir := filepath.Join(tempDir, "boundary")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "geo: create extract dir")
	}
	if err := extractZIP(zipPath, extractDir); err != nil {
		return nil, eris.Wrap(err, "geo: extract boundary ZIP")
	}

	shpPath, err := findFileByExt(extractDir, ".shp")
	if err != nil {
		return nil, eris.Wrap(err, "geo: find .shp file")
	}
	return loadShapefile(shpPath, sel)
}

func loadGeoJSON(path string, sel BoundarySelector) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read %s", path)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		// A bare Feature is accepted as well.
		f, ferr := geojson.UnmarshalFeature(data)
		if ferr != nil {
			return nil, eris.Wrapf(err, "geo: parse geojson %s", path)
		}
		fc = geojson.NewFeatureCollection().Append(f)
	}

	var best orb.Ring
	for _, f := range fc.Features {
		if sel.Name != "" && !strings.EqualFold(f.Properties.MustString(sel.Field, ""), sel.Name) {
			continue
		}
		if r := outerRing(f.Geometry); r != nil && ringArea(r) > ringArea(best) {
			best = r
		}
	}
	if best == nil {
		return nil, eris.Wrapf(ErrConfiguration, "geo: no polygon matching %q in %s", sel.Name, path)
	}
	return NewBoundary(best)
}

func loadShapefile(path string, sel BoundarySelector) (*Boundary, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := -1
	if sel.Name != "" {
		idx = fieldIndex(reader, sel.Field)
		if idx < 0 {
			return nil, eris.Wrapf(ErrConfiguration, "geo: shapefile field %s not found", sel.Field)
		}
	}

	var best orb.Ring
	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			continue
		}
		if idx >= 0 {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
			if !strings.EqualFold(val, sel.Name) {
				continue
			}
		}
		if r := ringFromShape(shape); r != nil && ringArea(r) > ringArea(best) {
			best = r
		}
	}
	if best == nil {
		return nil, eris.Wrapf(ErrConfiguration, "geo: no polygon matching %q in %s", sel.Name, path)
	}
	return NewBoundary(best)
}

// ringFromShape returns the largest part of a shapefile polygon.
func ringFromShape(s shp.Shape) orb.Ring {
	p, ok := s.(*shp.Polygon)
	if !ok || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var best orb.Ring
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		r := make(orb.Ring, 0, end-start)
		for j := start; j < end; j++ {
			r = append(r, orb.Point{p.Points[j].X, p.Points[j].Y})
		}
		if ringArea(r) > ringArea(best) {
			best = r
		}
	}
	return best
}

func outerRing(g orb.Geometry) orb.Ring {
	switch t := g.(type) {
	case orb.Polygon:
		if len(t) > 0 {
			return t[0]
		}
	case orb.MultiPolygon:
		var best orb.Ring
		for _, p := range t {
			if len(p) > 0 && ringArea(p[0]) > ringArea(best) {
				best = p[0]
			}
		}
		return best
	}
	return nil
}

func ringArea(r orb.Ring) float64 {
	if len(r) < 3 {
		return 0
	}
	return math.Abs(planar.Area(r))
}

// downloadFile downloads a URL to a local file.
func downloadFile(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrap(err, "download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(f, resp.Body); err != nil {
		return eris.Wrap(err, "write file")
	}
	return nil
}

// extractZIP extracts a ZIP archive to the destination directory, flattening
// any directory structure.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}
	return nil
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
