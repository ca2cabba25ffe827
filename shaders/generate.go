// Package shaders holds the triangle pipeline's GLSL sources and their
// compiled SPIR-V, which is embedded in the binary. Regenerate the SPIR-V with
// go generate after editing a shader.
package shaders

//go:generate glslc triangle.vert -o triangle.vert.spv
//go:generate glslc triangle.frag -o triangle.frag.spv
