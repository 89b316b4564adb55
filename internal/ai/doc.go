/*
Package ai adapts the remote models used to build memories.

  - Captioner describes a photo through a Gradio image-captioning app
  - Narrator rewrites that description as a short caption with Ollama
  - Backgrounds renders a collage background with a Gradio FLUX app

Gradio apps are reached over their REST API: a call is submitted, then its
server-sent event stream is read until the complete event. Hugging Face
space ids such as "owner/name" are turned into https://owner-name.hf.space.
All clients can share one rate limiter so a burst of memory tasks does not
exhaust a free-tier quota.
*/
package ai
