package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeTurn(t *testing.T) {
	sel := DefaultSelectors()

	tests := []struct {
		name      string
		turn      string
		container string
		want      TurnState
	}{
		{
			name: "streaming",
			turn: `<div message-content-id="3"><p>Fuji is</p><span class="typing"></span></div>`,
			want: TurnState{IsGenerating: true},
		},
		{
			name:      "finished with copy button in container",
			turn:      `<div message-content-id="3"><p>Fuji is a mountain.</p></div>`,
			container: `<div class="bubble"><div message-content-id="3"><p>Fuji is a mountain.</p></div><div class="actions"><button>コピー</button></div></div>`,
			want:      TurnState{HasActionMarker: true},
		},
		{
			name:      "marker by aria label",
			turn:      `<div message-content-id="4">done</div>`,
			container: `<div><div message-content-id="4">done</div><span role="button" aria-label="Copy"></span></div>`,
			want:      TurnState{HasActionMarker: true},
		},
		{
			name:      "marker by selector",
			turn:      `<div message-content-id="5">done</div>`,
			container: `<div><div message-content-id="5">done</div><i class="copy-button"></i></div>`,
			want:      TurnState{HasActionMarker: true},
		},
		{
			name: "copy word in prose is not a marker",
			turn: `<div message-content-id="6"><p>Copy the file first.</p></div>`,
			want: TurnState{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AnalyzeTurn(tt.turn, tt.container, sel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextContent(t *testing.T) {
	got, err := TextContent(`<div><p>First line</p><p>Second <b>bold</b> line<br>after break</p><button>Copy</button><script>x()</script></div>`)
	require.NoError(t, err)
	assert.Equal(t, "First line\nSecond bold line\nafter break", got)
}

func TestSelectorsWithDefaults(t *testing.T) {
	s := Selectors{TurnAttribute: "data-turn"}.withDefaults()
	assert.Equal(t, "data-turn", s.TurnAttribute)
	assert.Equal(t, DefaultSelectors().Input, s.Input)
	assert.NotEmpty(t, s.RegenerateTexts)
}
