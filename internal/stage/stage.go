// Package stage ties a scene file to the mesh that batches it. It has no
// GPU dependency, so the viewer and the headless tool share it.
package stage

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/Faultbox/skelbatch/internal/config"
	"github.com/Faultbox/skelbatch/internal/logger"
	"github.com/Faultbox/skelbatch/internal/skeleton"
	"github.com/Faultbox/skelbatch/internal/skeletonmesh"
	"github.com/Faultbox/skelbatch/pkg/formats"
)

// Swirl and jitter settings used by the named effects.
const (
	jitterRange = 2
	swirlRadius = 150
	swirlAngle  = 120
)

var ErrUnknownEffect = errors.New("stage: unknown effect")

// Stage is a built scene and the mesh that batches it.
type Stage struct {
	Scene    *formats.Scene
	Skeleton *skeleton.Skeleton
	Mesh     *skeletonmesh.SkeletonMesh

	effect string
	rng    *rand.Rand
	log    *zap.Logger
}

// New builds scene and a mesh configured from cfg. Textures are looked up
// with resolve.
func New(scene *formats.Scene, resolve formats.TextureResolver, cfg config.BatchConfig) (*Stage, error) {
	sk, err := scene.Build(resolve)
	if err != nil {
		return nil, fmt.Errorf("building scene %q: %w", scene.Name, err)
	}

	mesh, err := skeletonmesh.New(sk, skeletonmesh.Options{
		MaxVertices:         cfg.MaxVertices,
		ZOffset:             cfg.ZOffset,
		AdvanceZOnEmptyClip: cfg.AdvanceZOnEmptyClip,
		Animator:            scene.Animator(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating mesh: %w", err)
	}

	return &Stage{
		Scene:    scene,
		Skeleton: sk,
		Mesh:     mesh,
		effect:   config.EffectNone,
		rng:      rand.New(rand.NewPCG(1, 2)),
		log:      logger.Named("stage"),
	}, nil
}

// Load reads a scene file and builds it.
func Load(path string, resolve formats.TextureResolver, cfg config.BatchConfig) (*Stage, error) {
	scene, err := formats.LoadSkeleton(path)
	if err != nil {
		return nil, err
	}
	return New(scene, resolve, cfg)
}

// Effect returns the name of the active vertex effect.
func (s *Stage) Effect() string {
	return s.effect
}

// SetEffect selects a vertex effect by name. The empty name is none.
func (s *Stage) SetEffect(name string) error {
	if name == "" {
		name = config.EffectNone
	}
	fx, err := s.effectFor(name)
	if err != nil {
		return err
	}
	s.Mesh.VertexEffect = fx
	s.effect = name
	s.log.Debug("vertex effect selected", zap.String("effect", name))
	return nil
}

// NextEffect switches to the effect after the active one.
func (s *Stage) NextEffect() error {
	return s.SetEffect(NextEffect(s.effect))
}

// Step advances the animation by delta seconds and rebuilds the batches.
func (s *Stage) Step(delta float32) error {
	return s.Mesh.Update(delta)
}

// Dispose releases the mesh's batches.
func (s *Stage) Dispose() {
	s.Mesh.Dispose()
}

func (s *Stage) effectFor(name string) (skeletonmesh.VertexEffect, error) {
	switch name {
	case config.EffectNone:
		return nil, nil
	case config.EffectJitter:
		return skeletonmesh.JitterEffect(jitterRange, jitterRange, s.rng), nil
	case config.EffectSwirl:
		return skeletonmesh.SwirlEffect(s.Skeleton.X, s.Skeleton.Y, swirlRadius, swirlAngle), nil
	case config.EffectTint:
		return skeletonmesh.TintEffect(skeleton.Color{R: 1, G: 0.6, B: 0.6, A: 1}), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, name)
}

// NextEffect returns the effect that follows name in config.Effects,
// wrapping around. Unknown names restart the cycle.
func NextEffect(name string) string {
	for i, e := range config.Effects {
		if e == name {
			return config.Effects[(i+1)%len(config.Effects)]
		}
	}
	return config.Effects[0]
}
