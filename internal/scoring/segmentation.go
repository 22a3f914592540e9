package scoring

import (
	"context"
	"sort"

	"github.com/sightlab/visionbench/internal/config"
	"github.com/sightlab/visionbench/internal/dataset"
	"github.com/sightlab/visionbench/internal/result"
)

// SegmentationEngine scores segmentation submissions with mean IoU. Masks are
// RLE-decoded at the competition's fixed image size. IoU is computed per
// (image, class), averaged within each image over the classes present in
// ground truth or prediction, then averaged across ground-truth images.
// Per-class mean IoU across images is reported alongside the aggregate.
type SegmentationEngine struct {
	Height int
	Width  int
	Opts   dataset.Options
}

func (e *SegmentationEngine) TaskType() config.TaskType { return config.TaskSegmentation }

func (e *SegmentationEngine) Score(ctx context.Context, predictionPath, groundTruthPath string) (*Outcome, error) {
	gt, gtDups, err := dataset.ParseSegmentation(groundTruthPath, e.Opts)
	if err != nil {
		return nil, err
	}
	preds, predDups, err := dataset.ParseSegmentation(predictionPath, e.Opts)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Metrics: map[string]float64{}}
	out.log(result.LevelInfo, "loaded %d ground truth masks, %d predicted masks", len(gt), len(preds))
	for _, row := range predDups {
		out.log(result.LevelWarning, "row %d duplicates an earlier (image, class) mask; keeping the first", row)
	}
	if len(gtDups) > 0 {
		out.log(result.LevelWarning, "ground truth contains %d duplicate (image, class) masks; keeping the first of each", len(gtDups))
	}

	pixels := e.Height * e.Width

	type key struct{ image, class string }
	gtMasks := make(map[key][]bool, len(gt))
	gtImages := map[string]bool{}
	for _, r := range gt {
		mask, err := DecodeRLE(r.RLE, pixels)
		if err != nil {
			return nil, err
		}
		gtMasks[key{r.ImageID, r.Class}] = mask
		gtImages[r.ImageID] = true
	}

	predMasks := make(map[key][]bool, len(preds))
	ignored := 0
	for _, r := range preds {
		if !gtImages[r.ImageID] {
			// Masks for unknown images are false positives against
			// nothing; they are dropped from the denominator.
			ignored++
			continue
		}
		mask, err := DecodeRLE(r.RLE, pixels)
		if err != nil {
			return nil, err
		}
		predMasks[key{r.ImageID, r.Class}] = mask
	}
	if ignored > 0 {
		out.log(result.LevelWarning, "%d predicted masks reference image ids not in ground truth and were ignored", ignored)
	}

	// Classes contributing to an image's mean: present in ground truth or
	// prediction for that image. Present on one side only scores 0.
	perImageClasses := map[string]map[string]bool{}
	note := func(image, class string) {
		if perImageClasses[image] == nil {
			perImageClasses[image] = map[string]bool{}
		}
		perImageClasses[image][class] = true
	}
	for k := range gtMasks {
		note(k.image, k.class)
	}
	for k := range predMasks {
		note(k.image, k.class)
	}

	images := make([]string, 0, len(gtImages))
	for id := range gtImages {
		images = append(images, id)
	}
	sort.Strings(images)

	var miouSum float64
	counted := 0
	classSum := map[string]float64{}
	classCount := map[string]int{}
	for _, image := range images {
		classes := perImageClasses[image]
		if len(classes) == 0 {
			continue
		}
		var imageSum float64
		for class := range classes {
			// One side missing the class entirely scores IoU 0.
			var v float64
			g, hasGT := gtMasks[key{image, class}]
			p, hasPred := predMasks[key{image, class}]
			if hasGT && hasPred {
				v = maskIoU(g, p)
			}
			imageSum += v
			classSum[class] += v
			classCount[class]++
		}
		miouSum += imageSum / float64(len(classes))
		counted++
	}
	if counted == 0 {
		return nil, &MetricError{Metric: "miou", Reason: "no scorable images in ground truth"}
	}
	miou := miouSum / float64(counted)

	out.log(result.LevelInfo, "mIoU over %d images: %.4f", counted, miou)
	out.Metrics["miou"] = miou
	for class, sum := range classSum {
		out.Metrics["iou/"+class] = sum / float64(classCount[class])
	}
	out.Metrics["images"] = float64(counted)
	out.Metrics["ignored_masks"] = float64(ignored)
	out.Primary = miou
	return out, nil
}

// maskIoU treats two empty masks as a perfect match.
func maskIoU(a, b []bool) float64 {
	inter, union := 0, 0
	for i := range a {
		av, bv := a[i], b[i]
		if av && bv {
			inter++
		}
		if av || bv {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}
