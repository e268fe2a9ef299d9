// Package fallback picks offline transcript text when no transcription service produced
// anything usable.
//
// Selection is reproducible across implementations: the key is the UTF-8 string
// "<byteLength>|<modifiedAt unix seconds>|<baseName>", hashed with MD5. The 16-byte digest
// is read as an unsigned big-endian integer and reduced modulo the number of candidates in
// the bucket chosen by byteLength.
package fallback

import (
	"crypto/md5"
	"math/big"
	"strconv"
	"time"
)

type Bucket string

const (
	BucketVeryShort Bucket = "very_short"
	BucketShort     Bucket = "short"
	BucketMedium    Bucket = "medium"
	BucketLong      Bucket = "long"
)

const (
	veryShortLimit = 15000
	shortLimit     = 35000
	mediumLimit    = 70000
)

var candidates = map[Bucket][]string{
	BucketVeryShort: {
		"I just needed to say something out loud.",
		"There is something on my mind that I have not said to anyone.",
		"I am tired, and I wanted a moment to put that somewhere.",
	},
	BucketShort: {
		"I have been carrying something for a while now. I keep going over it and it has not gotten lighter.",
		"It has been a long stretch. I keep trying to hold everything together and I am not sure it is working.",
		"I spoke about how things have felt lately. Most days I get through it, but it takes more out of me than it used to.",
		"There is a situation I keep coming back to. I have tried to make sense of it and I still feel stuck.",
	},
	BucketMedium: {
		"I talked about the past few months and how much effort it has taken just to keep up. I keep telling myself it will settle down, " +
			"but every time it does something else comes along, and I am starting to feel worn down by the repetition of it.",
		"I spoke about a relationship that has been difficult. I have tried to say the right things and to be patient, " +
			"and I still end up feeling like I am the only one trying. I do not know what I expected to hear by saying it.",
		"I described how work has been taking over everything. I stay late, I think about it at night, and when I finally rest " +
			"I feel guilty for resting. I know it is a lot, and I have not really admitted that to anyone.",
		"I talked about feeling uncertain about where things are going. I made plans that made sense at the time, " +
			"and now I am not sure they still fit, and I have been quiet about that because it feels like admitting I got it wrong.",
		"I spoke about someone I miss. Some days it is manageable and some days it is not, and I never know in advance which kind of day it will be.",
	},
	BucketLong: {
		"I talked for a while about this year and how much of it has felt like pushing uphill. There were moments that should have " +
			"felt like progress, and instead they mostly felt like getting through the next thing. I have been trying to stay steady for " +
			"other people, and somewhere along the way I stopped checking how I was actually doing. Saying it out loud is the first time " +
			"I have put it together like this.",
		"I spoke about a decision I made and everything that followed from it. I keep revisiting it, wondering whether I could have done " +
			"something differently, and each time I land in the same place. I know going over it again does not change anything, and I " +
			"still find myself doing it late at night when everything else is quiet.",
		"I described how tired I have been, not just physically but in a way that sleep does not fix. I keep showing up and doing what " +
			"is expected, and people tell me I am handling it well, and that makes it harder to say that I am not sure how much longer I " +
			"can keep it up at this pace.",
		"I talked about the people around me and how I often end up holding things for them. I do not mind most of the time, but lately " +
			"I have noticed there is no one holding anything for me, and I have not known how to say that without it sounding like a complaint.",
		"I spoke about feeling behind, as if everyone else worked out something that I missed. I have tried harder, made lists, started " +
			"over more than once, and the feeling keeps returning. I wanted to say it somewhere it would not turn into advice.",
		"I talked about a loss that still feels close. Time has passed and people expect it to feel different by now, and in some ways it " +
			"does, but there are still moments where it arrives all at once and I have to stop what I am doing until it passes.",
	},
}

// BucketFor maps a byte length to its size bucket.
func BucketFor(byteLength int64) Bucket {
	switch {
	case byteLength < veryShortLimit:
		return BucketVeryShort
	case byteLength < shortLimit:
		return BucketShort
	case byteLength < mediumLimit:
		return BucketMedium
	default:
		return BucketLong
	}
}

// Candidates returns a copy of the ordered candidate list for a bucket.
func Candidates(b Bucket) []string {
	out := make([]string, len(candidates[b]))
	copy(out, candidates[b])
	return out
}

// Select deterministically picks filler text for an artifact. It never returns "".
func Select(byteLength int64, modifiedAt time.Time, baseName string) string {
	list := candidates[BucketFor(byteLength)]
	return list[Index(byteLength, modifiedAt, baseName, len(list))]
}

// Index is the reduction of the selection key's digest modulo n.
func Index(byteLength int64, modifiedAt time.Time, baseName string, n int) int {
	if n <= 0 {
		return 0
	}
	sum := md5.Sum([]byte(Key(byteLength, modifiedAt, baseName)))
	v := new(big.Int).SetBytes(sum[:])
	return int(v.Mod(v, big.NewInt(int64(n))).Int64())
}

// Key builds the hashed selection key.
func Key(byteLength int64, modifiedAt time.Time, baseName string) string {
	return strconv.FormatInt(byteLength, 10) + "|" + strconv.FormatInt(modifiedAt.Unix(), 10) + "|" + baseName
}
