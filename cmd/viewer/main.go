package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"tilestream.ai/internal/sim/tuning"
	"tilestream.ai/internal/sim/world"
	"tilestream.ai/internal/sim/world/terrain/tiles"
	"tilestream.ai/internal/viewer"
)

const (
	screenW = 1280
	screenH = 720
)

var (
	waterColor    = color.RGBA{R: 28, G: 74, B: 120, A: 255}
	observerColor = color.RGBA{R: 230, G: 40, B: 40, A: 255}
	chunkColor    = color.RGBA{R: 255, G: 255, B: 255, A: 60}

	kindColors = map[string]color.RGBA{
		tiles.KindGrass:   {R: 86, G: 160, B: 72, A: 255},
		tiles.KindCorner1: {R: 196, G: 180, B: 110, A: 255},
		tiles.KindCorner2: {R: 176, G: 160, B: 96, A: 255},
		tiles.KindCorner3: {R: 156, G: 140, B: 84, A: 255},
		tiles.KindCorner4: {R: 136, G: 120, B: 72, A: 255},
	}
)

type Game struct {
	w      *world.World
	scene  *viewer.Scene
	pos    world.Vec2
	cam    viewer.Camera
	accum  float64
	tickDT float64

	showChunks bool
	lastErr    error
}

func NewGame(w *world.World) *Game {
	g := &Game{
		w:      w,
		scene:  viewer.NewScene(),
		cam:    viewer.Camera{Zoom: 0.08, ScreenW: screenW, ScreenH: screenH},
		tickDT: 1 / float64(w.TickRateHz()),
	}
	w.SetPlacementSink(g.scene.Add)
	return g
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		g.showChunks = !g.showChunks
	}
	if _, dy := ebiten.Wheel(); dy != 0 {
		f := 1.1
		if dy < 0 {
			f = 1 / f
		}
		g.cam = g.cam.ZoomBy(f, 0.005, 2)
	}

	dt := 1 / float64(ebiten.TPS())
	g.pos = viewer.Move(g.pos, viewer.Input{
		Up:     ebiten.IsKeyPressed(ebiten.KeyW),
		Down:   ebiten.IsKeyPressed(ebiten.KeyS),
		Left:   ebiten.IsKeyPressed(ebiten.KeyA),
		Right:  ebiten.IsKeyPressed(ebiten.KeyD),
		Sprint: ebiten.IsKeyPressed(ebiten.KeyShift),
	}, dt)
	g.cam.Center = g.pos

	// Step the world at its own tick rate, not the frame rate.
	g.accum += dt
	for g.accum >= g.tickDT {
		g.accum -= g.tickDT
		p := g.pos
		_, _, g.lastErr = g.w.StepOnce(&p)
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(waterColor)

	grid := g.w.Grid()
	tw, th := float64(grid.TileW), float64(grid.TileH)
	cw, ch := tw*float64(grid.ChunkW), th*float64(grid.ChunkH)
	sw, sh := float32(tw*g.cam.Zoom), float32(th*g.cam.Zoom)
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}

	g.scene.Each(func(b world.PlacementBatch) {
		ox, oy := float64(b.Chunk.CX)*cw, float64(b.Chunk.CY)*ch
		if !g.cam.Visible(ox, oy, cw, ch) {
			return
		}
		for _, p := range b.Placements {
			x, y := g.cam.ToScreen(p.X, p.Y)
			vector.DrawFilledRect(screen, x, y, sw, sh, kindColors[p.Kind], false)
		}
		if g.showChunks {
			x, y := g.cam.ToScreen(ox, oy)
			vector.StrokeRect(screen, x, y, float32(cw*g.cam.Zoom), float32(ch*g.cam.Zoom), 1, chunkColor, false)
		}
	})

	ox, oy := g.cam.ToScreen(g.pos.X, g.pos.Y)
	vector.DrawFilledRect(screen, ox-3, oy-3, 6, 6, observerColor, false)

	ebitenutil.DebugPrint(screen, g.hud())
}

func (g *Game) hud() string {
	var b strings.Builder
	k := g.w.ChunkOf(g.pos)
	ground := "water"
	if g.w.IsLand(g.pos.X, g.pos.Y) {
		ground = "land"
	}
	fmt.Fprintf(&b, "seed %d  tick %d  pos (%.0f, %.0f)  chunk (%d,%d)  %s\n",
		g.w.Seed(), g.w.CurrentTick(), g.pos.X, g.pos.Y, k.CX, k.CY, ground)
	fmt.Fprintf(&b, "chunks %d  placements %d  unknown %d  zoom %.3f\n",
		g.scene.Chunks(), g.scene.Placements(), g.scene.Unknown(), g.cam.Zoom)
	for _, kc := range g.scene.KindCounts() {
		fmt.Fprintf(&b, "  %-8s %d\n", kc.Kind, kc.N)
	}
	if g.lastErr != nil {
		fmt.Fprintf(&b, "error: %v\n", g.lastErr)
	}
	b.WriteString("WASD move, Shift sprint, wheel zoom, B chunk borders, Esc quit")
	return b.String()
}

func (g *Game) Layout(outsideW, outsideH int) (int, int) {
	g.cam.ScreenW, g.cam.ScreenH = screenW, screenH
	return screenW, screenH
}

func main() {
	var (
		seed       = flag.Uint("seed", 0, "world seed (0 = random in [10000,99999))")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		backend    = flag.String("noise", "", "noise backend override (perlin|opensimplex)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[viewer] ", log.LstdFlags)

	tp := *tuningPath
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = tuning.Defaults()
	}
	if *backend != "" {
		tune.Noise.Backend = *backend
	}

	worldSeed := uint32(*seed)
	if worldSeed == 0 {
		worldSeed = world.RandomSeed()
	}
	logger.Printf("seed=%d", worldSeed)

	w, err := world.New(world.ConfigFromTuning(tune, worldSeed), log.New(os.Stdout, "[world] ", log.LstdFlags))
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	g := NewGame(w)
	if _, err := w.Prefetch(world.ChunkKey{}); err != nil {
		logger.Fatalf("prefetch: %v", err)
	}

	ebiten.SetWindowTitle(fmt.Sprintf("tilestream seed=%d", worldSeed))
	ebiten.SetWindowSize(screenW, screenH)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		logger.Fatal(err)
	}
}
