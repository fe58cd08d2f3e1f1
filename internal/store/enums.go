package store

type Origin string

const (
	OriginTubeAuto   Origin = "tube_auto"   // Auto generated YouTube.
	OriginTubeManual Origin = "tube_manual" // Manually added YouTube (creator or community).
	OriginUpload     Origin = "upload"      // Uploaded .srt file.
	OriginCopy       Origin = "copy"        // Copied from another source of the component.
)
