// Package descriptor loads the per-agent TOML descriptor.
//
// Earlier iterations of the system generated a worker script per agent by
// textual substitution. The descriptor replaces that: one structured file,
// read once at startup, carrying the display identity and voice-pipeline
// configuration (model, voice, temperature, prompt). The supervisor treats
// all of it as opaque pass-through data.
//
// Example:
//
//	name = "Appointment Setter"
//	description = "Books appointments over the phone"
//	model = "gpt-4"
//	voice = "nova"
//	temperature = 0.7
//	prompt = "You are a helpful scheduling assistant."
package descriptor
