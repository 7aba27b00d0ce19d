package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/mpromonet/gin-yolo3/internal/config"
	"github.com/mpromonet/gin-yolo3/internal/detector"
	"github.com/mpromonet/gin-yolo3/internal/ui"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	imagePath := fs.String("image", "", "image to run the detector on")
	outPath := fs.String("out", "", "write the annotated image to this file")
	show := fs.Bool("show", false, "show the result in a window")

	cfg, err := config.ParseFlags(fs, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(level)

	if *imagePath == "" {
		fs.Usage()
		os.Exit(2)
	}

	det, err := detector.New(*cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer det.Close()

	img := gocv.IMRead(*imagePath, gocv.IMReadColor)
	if img.Empty() {
		log.Fatalf("[Main] cannot read image %s", *imagePath)
	}
	defer img.Close()

	dets, err := det.Detect(&img)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%d object(s) detected in %s\n", len(dets), *imagePath)
	for _, d := range dets {
		fmt.Println(d.String())
	}

	if *outPath != "" {
		if !gocv.IMWrite(*outPath, img) {
			log.Errorf("[Main] cannot write %s", *outPath)
		} else {
			log.Infof("[Main] annotated image written to %s", *outPath)
		}
	}

	if *show {
		preview, err := img.ToImage()
		if err != nil {
			log.Fatal(err)
		}
		ui.ShowResults(*imagePath, preview, dets)
	}
}
