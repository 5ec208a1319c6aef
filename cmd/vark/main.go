// Command vark is a CLI wrapper around pkg/vark's archive engine,
// following original_source/vark.cpp's verb set: create, append,
// extract, list, and verify.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"vark/pkg/progress"
	"vark/pkg/vark"
)

func main() {
	if len(os.Args) < 3 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(os.Args[2], os.Args[3:])
	case "append":
		err = runAppend(os.Args[2], os.Args[3:])
	case "extract":
		err = runExtract(os.Args[2])
	case "list":
		err = runList(os.Args[2])
	case "verify":
		err = runVerify(os.Args[2])
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  vark create  <archive> <files/dirs...>   Create archive")
	fmt.Println("  vark append  <archive> <files/dirs...>   Append to archive")
	fmt.Println("  vark extract <archive>                   Extract archive")
	fmt.Println("  vark list    <archive>                   List archive contents")
	fmt.Println("  vark verify  <archive>                   Verify archive integrity")
}

// collectInputs expands a mix of file and directory arguments into a
// flat list of (diskPath, archivePath) pairs, walking directories
// recursively and using the path relative to the directory's parent as
// the archive-internal path.
func collectInputs(args []string) ([][2]string, error) {
	var inputs [][2]string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			inputs = append(inputs, [2]string{arg, filepath.ToSlash(arg)})
			continue
		}
		base := filepath.Dir(arg)
		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(base, p)
			if err != nil {
				return err
			}
			inputs = append(inputs, [2]string{p, filepath.ToSlash(rel)})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	return inputs, nil
}

func runCreate(archivePath string, sources []string) error {
	inputs, err := collectInputs(sources)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no input files specified for creation")
	}

	fmt.Printf("Creating archive: %s\n", archivePath)
	arc, err := vark.Create(archivePath, vark.FlagWrite|vark.FlagPersistentHandle)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer arc.Close()

	progress.Init(0)
	defer progress.Stop()

	for _, in := range inputs {
		fmt.Printf("  Adding: %s\n", in[1])
		flags := appendFlagsFor(in[0])
		if err := arc.Append(in[0], in[1], flags); err != nil {
			fmt.Printf("Error: failed to add %s: %v\n", in[1], err)
			continue
		}
		if fi, statErr := os.Stat(in[0]); statErr == nil {
			progress.AddBytes(uint64(fi.Size()))
		}
	}
	return nil
}

func runAppend(archivePath string, sources []string) error {
	inputs, err := collectInputs(sources)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no input files specified for append")
	}

	var arc *vark.Archive
	if _, statErr := os.Stat(archivePath); os.IsNotExist(statErr) {
		fmt.Printf("Archive not found, creating new: %s\n", archivePath)
		arc, err = vark.Create(archivePath, vark.FlagWrite|vark.FlagPersistentHandle)
	} else {
		arc, err = vark.Load(archivePath, vark.FlagWrite|vark.FlagPersistentHandle)
	}
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer arc.Close()

	progress.Init(0)
	defer progress.Stop()

	for _, in := range inputs {
		fmt.Printf("  Appending: %s\n", in[1])
		flags := appendFlagsFor(in[0])
		if err := arc.Append(in[0], in[1], flags); err != nil {
			fmt.Printf("Error: failed to append %s: %v\n", in[1], err)
			continue
		}
		if fi, statErr := os.Stat(in[0]); statErr == nil {
			progress.AddBytes(uint64(fi.Size()))
		}
	}
	return nil
}

// appendFlagsFor stores anything above shardThreshold (1 MiB) in the
// sharded layout so large members support random-access reads later;
// small members stay whole to avoid the offset-array overhead.
func appendFlagsFor(sourcePath string) vark.AppendFlags {
	fi, err := os.Stat(sourcePath)
	if err != nil {
		return 0
	}
	if fi.Size() > int64(shardThreshold) {
		return vark.FlagSharded
	}
	return 0
}

const shardThreshold = 1 << 20 // 1 MiB

func runExtract(archivePath string) error {
	fmt.Printf("Extracting archive: %s\n", archivePath)
	arc, err := vark.Load(archivePath, vark.FlagMmap|vark.FlagPersistentHandle)
	if err != nil {
		return fmt.Errorf("load archive: %w", err)
	}
	defer arc.Close()

	progress.Init(0)
	defer progress.Stop()

	for _, e := range arc.Members() {
		fmt.Printf("  Extracting: %s\n", e.Path)
		data, err := arc.Decompress(e.Path)
		if err != nil {
			fmt.Printf("    Error: decompression failed: %v\n", err)
			continue
		}
		if dir := filepath.Dir(e.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fmt.Printf("    Error: could not create directory: %v\n", err)
				continue
			}
		}
		if err := os.WriteFile(e.Path, data, 0o644); err != nil {
			fmt.Printf("    Error: could not write file: %v\n", err)
			continue
		}
		progress.AddBytes(uint64(len(data)))
	}
	return nil
}

func runList(archivePath string) error {
	arc, err := vark.Load(archivePath, 0)
	if err != nil {
		return fmt.Errorf("load archive: %w", err)
	}
	defer arc.Close()

	members := arc.Members()
	fmt.Printf("Archive: %s (%d files)\n", archivePath, len(members))
	fmt.Println("  Compressed Size  Original Path")
	fmt.Println("  ---------------  -------------")
	for _, e := range members {
		fmt.Printf("  %15d  %s\n", e.Size, e.Path)
	}
	return nil
}

func runVerify(archivePath string) error {
	arc, err := vark.Load(archivePath, vark.FlagMmap|vark.FlagPersistentHandle)
	if err != nil {
		return fmt.Errorf("load archive: %w", err)
	}
	defer arc.Close()

	fmt.Printf("Verifying archive: %s\n", archivePath)
	var failCount int
	for _, e := range arc.Members() {
		fmt.Printf("  %s... ", e.Path)
		if _, err := arc.Decompress(e.Path); err != nil {
			fmt.Printf("FAILED (%v)\n", err)
			failCount++
			continue
		}
		fmt.Println("OK")
	}

	if failCount == 0 {
		fmt.Println("\nIntegrity check PASSED.")
		return nil
	}
	fmt.Printf("\nIntegrity check FAILED (%d errors found).\n", failCount)
	return fmt.Errorf("%d member(s) failed verification", failCount)
}
