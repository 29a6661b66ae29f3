package midiplayer

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// SongPattern is the glob used to find playable files in the asset directory.
const SongPattern = "*.mid"

// Song is a MIDI file loaded from disk. It is read fresh for every playback
// and must not be modified after the playback has started.
type Song struct {
	Path string
	SMF  *smf.SMF
}

// ReadSong reads and parses a MIDI file.
func ReadSong(path string) (*Song, error) {
	s, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %v: %w", ErrReadSong, path, err)
	}
	return &Song{Path: path, SMF: s}, nil
}

// Name returns the file name of the song, without the directory.
func (s *Song) Name() string {
	return filepath.Base(s.Path)
}

// NoteOnCount returns the number of sounding note-on events in all the
// tracks.
func (s *Song) NoteOnCount() int {
	var ch, key, vel uint8
	count := 0
	for _, track := range s.SMF.Tracks {
		for _, ev := range track {
			if ev.Message.GetNoteStart(&ch, &key, &vel) {
				count++
			}
		}
	}
	return count
}

// ListSongs returns the playable files in dir, sorted by name.
func ListSongs(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, SongPattern))
	if err != nil {
		return nil, fmt.Errorf("could not glob the path %v for MIDI files: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// PickSong returns a uniformly random playable file from dir.
func PickSong(dir string, rng *rand.Rand) (string, error) {
	files, err := ListSongs(dir)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w in %v", ErrNoPlayableFiles, dir)
	}
	return files[rng.IntN(len(files))], nil
}
