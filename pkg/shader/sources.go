package shader

// Scene pass: logical pixels to clip space, then either the vertex color or
// an atlas sample.
const sceneVertexSource = `
#version 410 core
layout (location = 0) in vec2 aPosition;
layout (location = 1) in vec2 aTexCoords;
layout (location = 2) in vec4 aColor;

layout (std140) uniform RenderVertexUniform {
    vec2 logical_size;
    vec2 unused;
};

out vec2 TexCoords;
out vec4 Color;

void main() {
    vec2 clip = vec2(
        (aPosition.x / logical_size.x) * 2.0 - 1.0,
        (1.0 - aPosition.y / logical_size.y) * 2.0 - 1.0);
    gl_Position = vec4(clip, 0.0, 1.0);
    TexCoords = aTexCoords;
    Color = aColor;
}
`

const sceneFragmentSource = `
#version 410 core
in vec2 TexCoords;
in vec4 Color;
out vec4 FragColor;

uniform sampler2D atlas_texture;

void main() {
    if (Color.a > 0.0) {
        FragColor = Color;
    } else {
        FragColor = texture(atlas_texture, TexCoords);
    }
}
`

// Postprocess pass: one full-screen quad
const postprocessVertexSource = `
#version 410 core
layout (location = 0) in vec2 aPosition;

void main() {
    gl_Position = vec4(aPosition, 0.0, 1.0);
}
`

// Layer targets are rendered y-up, so their samples flip t. The static
// texture is uploaded top row first and is sampled as is.
const postprocessFragmentSource = `
#version 410 core

struct Light {
    vec2 position;
    float radius;
    float pad;
};

layout (std140) uniform PostprocessFragmentUniform {
    vec2 render_size;
    vec2 texture_size;
    float time_s;
    int is_dark;
    int spotlight_count;
    int pad;
    Light spotlight[32];
};

uniform sampler2D player_texture;
uniform sampler2D hud_texture;
uniform sampler2D static_texture;

out vec4 FragColor;

vec2 tube_warp(vec2 coord, vec2 offset) {
    coord = (coord * 2.0 - 1.0) * 0.5;
    vec2 bend = coord / 2.5;
    coord.x *= 1.0 + bend.y * bend.y;
    bend = coord / 2.5;
    coord.y *= 1.0 + bend.x * bend.x;
    coord += offset;
    return coord + 0.5;
}

vec4 fuzz(sampler2D tex, vec2 uv) {
    vec2 size = vec2(textureSize(tex, 0));
    vec2 p = uv * size + 0.5;
    vec2 i = floor(p);
    vec2 f = smoothstep(0.0, 1.0, p - i);
    vec2 st = (i + f - 0.5) / size;
    return texture(tex, vec2(st.x, 1.0 - st.y));
}

vec4 split(sampler2D tex, vec2 red, vec2 center, vec2 blue) {
    vec4 c = fuzz(tex, center);
    return vec4(fuzz(tex, red).r, c.g, fuzz(tex, blue).b, c.a);
}

void main() {
    vec2 pos = vec2(gl_FragCoord.x, render_size.y - gl_FragCoord.y);
    vec2 uv = pos / render_size;

    vec2 center = tube_warp(uv, vec2(0.0, 0.0));
    if (center.x < 0.0 || center.y < 0.0 || center.x > 1.0 || center.y > 1.0) {
        FragColor = vec4(0.0, 0.0, 0.0, 1.0);
        return;
    }
    vec2 red = tube_warp(uv, vec2(0.002, 0.0));
    vec2 blue = tube_warp(uv, vec2(-0.002, 0.0));

    vec3 color = split(player_texture, red, center, blue).rgb;

#ifdef ENABLE_HUD
    vec4 hud = split(hud_texture, red, center, blue);
    color = mix(hud.rgb, color, 1.0 - hud.a);
#endif

#ifdef ENABLE_LIGHTING
    if (is_dark != 0 && spotlight_count > 0) {
        vec2 p = center * texture_size;
        float darkness = 0.85;
        for (int i = 0; i < spotlight_count && i < 32; i++) {
            if (spotlight[i].radius <= 0.0) {
                continue;
            }
            float d = distance(p, spotlight[i].position) / spotlight[i].radius;
            darkness = min(darkness, smoothstep(0.0, 1.0, d) * 0.85);
        }
        color = mix(color, vec3(0.0), darkness);
    }
#endif

    vec3 random = texture(static_texture, vec2(center.x, fract(center.y + time_s * 10.0))).rgb;
    color = mix(color, random, 0.04);

    float scan = sin((uv.y * render_size.y + time_s * 5.0) / 1.5);
    color = mix(color, vec3(scan), 0.015);

    FragColor = vec4(color, 1.0);
}
`
