package markenc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/ispec"
	"github.com/vegafusion-go/vf/markenc"
)

func baseSpec() *ispec.ChartSpec {
	return &ispec.ChartSpec{
		Data: []ispec.DataSpec{{Name: "source"}},
		Scales: []ispec.ScaleSpec{
			{Name: "x", Type: "linear"},
			{Name: "color", Type: "ordinal"},
		},
		Marks: []ispec.MarkSpec{
			{
				Type: "symbol",
				Name: "points",
				From: &ispec.MarkFrom{Data: "source"},
				Encode: map[string]map[string]ispec.EncodeChannel{
					"update": {
						"x":     {Scale: "x", Field: "v"},
						"y":     {Signal: "height - 10"},
						"fill":  {Scale: "color", Field: "c"},
					},
				},
			},
		},
	}
}

func TestExtract_NoopWhenDisabled(t *testing.T) {
	require := require.New(t)
	client := baseSpec()
	server := baseSpec()
	err := markenc.Extract(client, server, map[string]bool{"source": true}, markenc.Config{})
	require.NoError(err)
	require.Equal("source", client.Marks[0].From.Data)
	require.Len(server.Data, 1)
}

func TestExtract_PrecomputesScaleBoundChannels(t *testing.T) {
	require := require.New(t)
	client := baseSpec()
	server := baseSpec()
	cfg := markenc.Config{PrecomputeMarkEncodings: true, CopyScalesToServer: true}
	err := markenc.Extract(client, server, map[string]bool{"source": true}, cfg)
	require.NoError(err)

	require.Len(server.Data, 2)
	derived := server.Data[1]
	require.Equal("_vf_markenc_root_points", derived.Name)
	require.Equal("source", derived.Source)
	require.Len(derived.Transform, 1)
	require.Equal("vf-markenc", derived.Transform[0].Type)
	require.Contains(derived.Transform[0].Expr, "x")
	require.Contains(derived.Transform[0].Expr, "fill")
	require.NotContains(derived.Transform[0].Expr, "y") // signal-driven channel is never extracted

	mark := client.Marks[0]
	require.Equal(derived.Name, mark.From.Data)
	require.Equal("", mark.Encode["update"]["x"].Scale)
	require.NotEmpty(mark.Encode["update"]["x"].Field)
	require.Equal("height - 10", mark.Encode["update"]["y"].Signal)
}

func TestExtract_SkipsScaleChannelsWhenScalesNotCopied(t *testing.T) {
	require := require.New(t)
	client := baseSpec()
	server := baseSpec()
	cfg := markenc.Config{PrecomputeMarkEncodings: true, CopyScalesToServer: false}
	err := markenc.Extract(client, server, map[string]bool{"source": true}, cfg)
	require.NoError(err)
	require.Len(server.Data, 1) // nothing extracted: both remaining channels are scale-bound
}

func TestExtract_SkipsMarksInFacetGroups(t *testing.T) {
	require := require.New(t)
	client := &ispec.ChartSpec{
		Data: []ispec.DataSpec{{Name: "source"}},
		Marks: []ispec.MarkSpec{
			{
				Type: ispec.GroupMarkType,
				From: &ispec.MarkFrom{Facet: &ispec.MarkFacet{Name: "facet", Data: "source"}},
				Marks: []ispec.MarkSpec{
					{
						Type: "symbol",
						From: &ispec.MarkFrom{Data: "facet"},
						Encode: map[string]map[string]ispec.EncodeChannel{
							"update": {"x": {Scale: "x", Field: "v"}},
						},
					},
				},
			},
		},
	}
	server := &ispec.ChartSpec{Data: []ispec.DataSpec{{Name: "source"}}}
	cfg := markenc.Config{PrecomputeMarkEncodings: true, CopyScalesToServer: true}
	err := markenc.Extract(client, server, map[string]bool{"source": true, "facet": true}, cfg)
	require.NoError(err)
	require.Len(server.Data, 1) // no extraction happened inside the facet group
}

func TestExtract_SkipsWhenSourceNotServerAvailable(t *testing.T) {
	require := require.New(t)
	client := baseSpec()
	server := baseSpec()
	cfg := markenc.Config{PrecomputeMarkEncodings: true, CopyScalesToServer: true}
	err := markenc.Extract(client, server, map[string]bool{}, cfg)
	require.NoError(err)
	require.Len(server.Data, 1)
	require.Equal("source", client.Marks[0].From.Data)
}
