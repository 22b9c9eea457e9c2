// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package qlinear

import (
	"github.com/gomlx/qgemm/pkg/core/hardware"
	"github.com/gomlx/qgemm/pkg/core/tensors"
	"github.com/gomlx/qgemm/pkg/gemm"
	"github.com/gomlx/qgemm/pkg/support/xerrors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Conv2DConfig holds the attributes of a 2D convolution. Spatial attributes are given as (height, width).
//
// Zero values of Strides, Dilations and Groups default to 1.
type Conv2DConfig struct {
	Strides   [2]int
	Paddings  [2]int
	Dilations [2]int
	Groups    int
}

// normalize replaces zero values by their defaults, and validates the configuration.
func (c Conv2DConfig) normalize() (Conv2DConfig, error) {
	for axis := range 2 {
		if c.Strides[axis] == 0 {
			c.Strides[axis] = 1
		}
		if c.Dilations[axis] == 0 {
			c.Dilations[axis] = 1
		}
		if c.Strides[axis] < 0 || c.Dilations[axis] < 0 || c.Paddings[axis] < 0 {
			return c, xerrors.InvalidArgumentf("conv2d: invalid strides=%v, dilations=%v or paddings=%v",
				c.Strides, c.Dilations, c.Paddings)
		}
	}
	if c.Groups == 0 {
		c.Groups = 1
	}
	if c.Groups < 0 {
		return c, xerrors.InvalidArgumentf("conv2d: invalid groups=%d", c.Groups)
	}
	return c, nil
}

// conv2DGeometry holds the derived dimensions of a convolution.
type conv2DGeometry struct {
	Conv2DConfig
	batchSize, inChannels, inHeight, inWidth int
	outChannels, kernelHeight, kernelWidth   int
	outHeight, outWidth                      int

	// Per group: input channels, output channels.
	groupInChannels, groupOutChannels int
}

// Conv2DOutputSize returns the spatial output dimensions of a convolution.
func Conv2DOutputSize(inHeight, inWidth, kernelHeight, kernelWidth int, config Conv2DConfig) (outHeight, outWidth int) {
	extentHeight := config.Dilations[0]*(kernelHeight-1) + 1
	extentWidth := config.Dilations[1]*(kernelWidth-1) + 1
	outHeight = (inHeight+2*config.Paddings[0]-extentHeight)/config.Strides[0] + 1
	outWidth = (inWidth+2*config.Paddings[1]-extentWidth)/config.Strides[1] + 1
	return
}

func newConv2DGeometry(inputDims, filterDims []int, config Conv2DConfig) (g conv2DGeometry, err error) {
	if len(inputDims) != 4 || len(filterDims) != 4 {
		return g, xerrors.InvalidArgumentf("conv2d: input [N, C, H, W] and filter [O, C/groups, KH, KW] must be rank 4, got %v and %v",
			inputDims, filterDims)
	}
	g.Conv2DConfig, err = config.normalize()
	if err != nil {
		return g, err
	}
	g.batchSize, g.inChannels, g.inHeight, g.inWidth = inputDims[0], inputDims[1], inputDims[2], inputDims[3]
	g.outChannels, g.kernelHeight, g.kernelWidth = filterDims[0], filterDims[2], filterDims[3]
	if g.inChannels%g.Groups != 0 || g.outChannels%g.Groups != 0 {
		return g, xerrors.InvalidArgumentf("conv2d: input channels (%d) and output channels (%d) must be divisible by groups (%d)",
			g.inChannels, g.outChannels, g.Groups)
	}
	g.groupInChannels = g.inChannels / g.Groups
	g.groupOutChannels = g.outChannels / g.Groups
	if filterDims[1] != g.groupInChannels {
		return g, xerrors.InvalidArgumentf("conv2d: filter %v must have %d input channels (%d channels in %d groups)",
			filterDims, g.groupInChannels, g.inChannels, g.Groups)
	}
	g.outHeight, g.outWidth = Conv2DOutputSize(g.inHeight, g.inWidth, g.kernelHeight, g.kernelWidth, g.Conv2DConfig)
	if g.batchSize <= 0 || g.outChannels <= 0 || g.kernelHeight <= 0 || g.kernelWidth <= 0 || g.outHeight <= 0 || g.outWidth <= 0 {
		return g, xerrors.InvalidArgumentf("conv2d: input %v and filter %v with %+v produce an empty output of %dx%d",
			inputDims, filterDims, config, g.outHeight, g.outWidth)
	}
	return g, nil
}

// im2col writes the patches of one group of one image as a [groupInChannels*KH*KW][outHeight*outWidth]
// matrix. Positions falling in the padding are zero.
func im2col[T gemm.Input](g *conv2DGeometry, image []T, group int, cols []T) {
	numPositions := g.outHeight * g.outWidth
	for c := range g.groupInChannels {
		channel := image[(group*g.groupInChannels+c)*g.inHeight*g.inWidth:]
		for p := range g.kernelHeight {
			for q := range g.kernelWidth {
				row := cols[((c*g.kernelHeight+p)*g.kernelWidth+q)*numPositions:][:numPositions]
				for y := range g.outHeight {
					inY := y*g.Strides[0] - g.Paddings[0] + p*g.Dilations[0]
					rowY := row[y*g.outWidth : (y+1)*g.outWidth]
					if inY < 0 || inY >= g.inHeight {
						clear(rowY)
						continue
					}
					for x := range g.outWidth {
						inX := x*g.Strides[1] - g.Paddings[1] + q*g.Dilations[1]
						if inX < 0 || inX >= g.inWidth {
							rowY[x] = 0
						} else {
							rowY[x] = channel[inY*g.inWidth+inX]
						}
					}
				}
			}
		}
	}
}

// Conv2D computes the convolution of an NCHW input with an [O, C/groups, KH, KW] filter, and returns
// the [N, O, OH, OW] output.
//
// It lowers the convolution to one GEMM per image and group: the filter group, as a [O/groups][C/groups*KH*KW]
// matrix, times the im2col patches matrix. For int8 inputs the outputs are the exact int32 accumulations.
//
// The options are passed to the gemm.Executor.
func Conv2D[In gemm.Input, Out gemm.Output](hw hardware.Descriptor, input, filter *tensors.Tensor[In], config Conv2DConfig,
	opts ...gemm.Option) (*tensors.Tensor[Out], error) {
	g, err := newConv2DGeometry(input.Shape().Dimensions, filter.Shape().Dimensions, config)
	if err != nil {
		return nil, err
	}
	m := g.groupOutChannels
	n := g.outHeight * g.outWidth
	k := g.groupInChannels * g.kernelHeight * g.kernelWidth
	exec, err := gemm.NewExecutor[In, Out](hw, false, false, m, n, k, opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "conv2d")
	}
	defer exec.Close()
	klog.V(2).Infof("conv2d: input=%s filter=%s %+v -> GEMM %dx%dx%d x %d", input.Shape(), filter.Shape(), g.Conv2DConfig,
		m, n, k, g.batchSize*g.Groups)

	output := tensors.FromShape[Out](g.batchSize, g.outChannels, g.outHeight, g.outWidth)
	inFlat, filterFlat, outFlat := input.Flat(), filter.Flat(), output.Flat()
	cols := make([]In, k*n)
	imageSize := g.inChannels * g.inHeight * g.inWidth
	for batchIdx := range g.batchSize {
		image := inFlat[batchIdx*imageSize : (batchIdx+1)*imageSize]
		for group := range g.Groups {
			im2col(&g, image, group, cols)
			groupFilter := filterFlat[group*m*k : (group+1)*m*k]
			groupOut := outFlat[(batchIdx*g.outChannels+group*m)*n:][:m*n]
			exec.Run(1, groupFilter, k, cols, n, 0, groupOut, n)
		}
	}
	return output, nil
}

// Conv2DReference computes the same as Conv2D with direct loops over the output, input channels and
// kernel positions. It is slow, and meant for testing.
func Conv2DReference[In gemm.Input, Out gemm.Output](input, filter *tensors.Tensor[In], config Conv2DConfig) (*tensors.Tensor[Out], error) {
	g, err := newConv2DGeometry(input.Shape().Dimensions, filter.Shape().Dimensions, config)
	if err != nil {
		return nil, err
	}
	output := tensors.FromShape[Out](g.batchSize, g.outChannels, g.outHeight, g.outWidth)
	inFlat, filterFlat, outFlat := input.Flat(), filter.Flat(), output.Flat()
	for batchIdx := range g.batchSize {
		for o := range g.outChannels {
			group := o / g.groupOutChannels
			for y := range g.outHeight {
				for x := range g.outWidth {
					var acc Out
					for c := range g.groupInChannels {
						inChannel := group*g.groupInChannels + c
						for p := range g.kernelHeight {
							inY := y*g.Strides[0] - g.Paddings[0] + p*g.Dilations[0]
							if inY < 0 || inY >= g.inHeight {
								continue
							}
							for q := range g.kernelWidth {
								inX := x*g.Strides[1] - g.Paddings[1] + q*g.Dilations[1]
								if inX < 0 || inX >= g.inWidth {
									continue
								}
								inValue := inFlat[((batchIdx*g.inChannels+inChannel)*g.inHeight+inY)*g.inWidth+inX]
								weight := filterFlat[((o*g.groupInChannels+c)*g.kernelHeight+p)*g.kernelWidth+q]
								acc += Out(inValue) * Out(weight)
							}
						}
					}
					outFlat[((batchIdx*g.outChannels+o)*g.outHeight+y)*g.outWidth+x] = acc
				}
			}
		}
	}
	return output, nil
}
