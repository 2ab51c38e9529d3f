package galprof

import "fmt"

// FitData is the per-iteration image state shared by all models: the target,
// the accumulated model and the residual the models compute loss from.
type FitData struct {
	Target     *Image
	ModelImage *Image
	LossImage  *Image
}

// NewFitData prepares a zeroed full-frame model image for target.
func NewFitData(target *Image) *FitData {
	return &FitData{
		Target:     target,
		ModelImage: NewImage(target.rows, target.cols, target.pixelscale, target.origin),
	}
}

// ResetModel clears the accumulated model image.
func (d *FitData) ResetModel() {
	d.ModelImage.Zero()
}

// UpdateLoss sets LossImage to Target - ModelImage.
func (d *FitData) UpdateLoss() error {
	residual, err := d.Target.Subtract(d.ModelImage)
	if err != nil {
		return fmt.Errorf("computing residual: %w", err)
	}
	d.LossImage = residual
	return nil
}
