package main

import (
	"context"
	"flag"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/swdee/go-deepfield"
	"github.com/swdee/go-deepfield/acquire"
	"github.com/swdee/go-deepfield/server"
	"github.com/swdee/go-deepfield/sqlitecache"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	configFile := flag.String("c", "threedeeify.yaml", "YAML parameters file, defaults are used if it does not exist")
	dataDir := flag.String("d", "out", "Directory the source imagery is downloaded to")
	tags := flag.String("t", "first-deep-field,nircam", "Comma separated tags selecting the source image")
	maxDim := flag.Int("max", 0, "Downscale the source so its longest side is at most this many pixels, 0 keeps full size")
	cachePath := flag.String("cache", "out/catalog.db", "SQLite catalog cache, empty to disable caching")
	artifactDir := flag.String("o", "", "Directory to write the processed, mask, annotated and feature images to")
	listen := flag.String("l", ":8080", "Address to serve the catalog on, empty to exit after building")
	saveConfig := flag.Bool("save", false, "Write the effective parameters to the config file and exit")
	minSize := flag.Int("min", -1, "Override the minimum feature size")
	seed := flag.Uint64("seed", 0, "Seed for feature depths, 0 seeds from the clock")

	flag.Parse()

	params, err := deepfield.LoadParams(*configFile)

	if err != nil {
		log.Fatalf("Error loading parameters: %v\n", err)
	}

	if *minSize >= 0 {
		params.MinSize = *minSize
	}

	if *seed != 0 {
		params.Seed = *seed
	}

	if *saveConfig {
		if err := deepfield.SaveParams(params, *configFile); err != nil {
			log.Fatalf("Error saving parameters: %v\n", err)
		}

		log.Printf("Saved parameters to %s\n", *configFile)
		return
	}

	params.Logf = log.Printf

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// download imagery
	lib, err := acquire.Fetch(ctx, &http.Client{Timeout: 30 * time.Minute}, *dataDir, acquire.DefaultSources())

	if err != nil {
		log.Fatalf("Error fetching imagery: %v\n", err)
	}

	srcPath := lib.Path(strings.Split(*tags, ",")...)

	if srcPath == "" {
		log.Fatalf("No source image matches tags %s\n", *tags)
	}

	start := time.Now()

	img, err := acquire.Load(srcPath, *maxDim)

	if err != nil {
		log.Fatalf("Error loading image: %v\n", err)
	}

	log.Printf("Loaded %s (%dx%d) in %s\n", srcPath, img.Bounds().Dx(), img.Bounds().Dy(),
		time.Since(start).String())

	catalog, err := build(srcPath, img, params, *cachePath, *maxDim)

	if err != nil {
		log.Fatalf("Error building catalog: %v\n", err)
	}

	summary := catalog.Summary()
	log.Printf("Catalog has %d features, mean area %.1f px, mean depth %.3f\n",
		catalog.Size(), summary.MeanArea, summary.MeanDepth)

	if *artifactDir != "" {
		if err := writeArtifacts(catalog, *artifactDir); err != nil {
			log.Fatalf("Error writing artifacts: %v\n", err)
		}

		log.Printf("Wrote artifacts to %s\n", *artifactDir)
	}

	if *listen == "" {
		return
	}

	srv := &http.Server{
		Addr:    *listen,
		Handler: server.New(catalog),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Serving catalog on %s\n", *listen)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Error serving catalog: %v\n", err)
	}
}

// build returns the catalog for the image, using the cache at cachePath if
// one is given
func build(srcPath string, img *image.RGBA, params deepfield.Params, cachePath string, maxDim int) (*deepfield.Catalog, error) {

	if cachePath == "" {
		return deepfield.Build(img, params)
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return nil, err
	}

	cache, err := sqlitecache.Open(cachePath)

	if err != nil {
		return nil, err
	}

	defer cache.Close()

	sourceID, err := acquire.SourceID(srcPath, maxDim)

	if err != nil {
		return nil, err
	}

	catalog, hit, err := deepfield.BuildCached(cache, sourceID, img, params)

	if err != nil {
		return nil, err
	}

	if hit {
		log.Printf("Using cached catalog from %s\n", cachePath)
	}

	if runs, err := cache.Runs(); err == nil {
		log.Printf("Cache holds %d catalogs\n", len(runs))
	}

	return catalog, nil
}

// writeArtifacts saves the debug images and every feature image to dir
func writeArtifacts(catalog *deepfield.Catalog, dir string) error {

	if err := os.MkdirAll(filepath.Join(dir, "features"), 0755); err != nil {
		return err
	}

	art := catalog.Artifacts()

	files := map[string][]byte{
		"processed.png": art.Processed,
		"mask.png":      art.Mask,
		"annotated.png": art.Annotated,
	}

	for _, e := range catalog.Entries() {
		files[filepath.Join("features", strconv.Itoa(e.Feature.Index)+".png")] = e.Feature.PNG
	}

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return err
		}
	}

	return nil
}
