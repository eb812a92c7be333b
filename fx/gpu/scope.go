package gpu

// TransparentBlack is the clear color of offscreen targets.
var TransparentBlack = [4]float32{0, 0, 0, 0}

// WithTarget opens a pass on target, runs fn, and always ends the pass, so the
// encoder is back to no bound target on every return path. The first error
// wins.
func WithTarget(enc Encoder, target RenderTarget, clear ClearFlags, color [4]float32, fn func(Pass) error) (err error) {
	pass, err := enc.BeginPass(target, clear, color)
	if err != nil {
		return err
	}
	defer func() {
		if endErr := pass.End(); err == nil {
			err = endErr
		}
	}()
	return fn(pass)
}
